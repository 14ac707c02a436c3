package techstack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const springPOM = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <parent>
    <groupId>org.springframework.boot</groupId>
    <artifactId>spring-boot-starter-parent</artifactId>
    <version>3.2.1</version>
  </parent>
  <groupId>com.acme</groupId>
  <artifactId>orders</artifactId>
  <properties>
    <ojdbc.version>19.3.0.0</ojdbc.version>
  </properties>
  <dependencies>
    <dependency>
      <groupId>org.springframework.boot</groupId>
      <artifactId>spring-boot-starter-data-jpa</artifactId>
    </dependency>
    <dependency>
      <groupId>org.hibernate.orm</groupId>
      <artifactId>hibernate-core</artifactId>
      <version>6.4.1.Final</version>
    </dependency>
    <dependency>
      <groupId>com.oracle.database.jdbc</groupId>
      <artifactId>ojdbc8</artifactId>
      <version>${ojdbc.version}</version>
    </dependency>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13.2</version>
    </dependency>
  </dependencies>
</project>
`

func TestDetect_JavaRepo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pom.xml", springPOM)
	writeFile(t, dir, "src/main/resources/application.yml", `spring:
  datasource:
    url: jdbc:oracle:thin:@db:1521/ORCL
  jpa:
    properties:
      hibernate:
        dialect: org.hibernate.dialect.Oracle12cDialect
---
server:
  port: 8080
`)
	writeFile(t, dir, "src/main/webapp/WEB-INF/weblogic.xml", "<weblogic-web-app/>")
	writeFile(t, dir, "src/main/java/app/UserDao.java", `package app;

import javax.persistence.Entity;
import org.springframework.stereotype.Repository;

@Repository
public class UserDao {}
`)
	writeFile(t, dir, "target/classes/jboss-web.xml", "<jboss-web/>")

	got, err := Detect(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, []Technology{
		{Name: "Maven", Category: CategoryBuild, EvidencePath: "pom.xml"},
		{Name: "Hibernate", Category: CategoryFramework, Version: "6.4.1.Final", EvidencePath: "pom.xml"},
		{Name: "JPA", Category: CategoryFramework, EvidencePath: "src/main/java/app/UserDao.java"},
		{Name: "Spring", Category: CategoryFramework, EvidencePath: "src/main/java/app/UserDao.java"},
		{Name: "Spring Boot", Category: CategoryFramework, Version: "3.2.1", EvidencePath: "pom.xml"},
		{Name: "WebLogic", Category: CategoryServer, EvidencePath: "src/main/webapp/WEB-INF/weblogic.xml"},
		{Name: "Oracle", Category: CategoryDatabase, Version: "19.3.0.0", EvidencePath: "pom.xml"},
	}, got)
}

func TestDetect_DotnetRepo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Api/Api.csproj", `<Project Sdk="Microsoft.NET.Sdk.Web">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Microsoft.EntityFrameworkCore.SqlServer" Version="8.0.1" />
    <PackageReference Include="Dapper" Version="2.1.28" />
    <PackageReference Include="Npgsql">
      <Version>8.0.0</Version>
    </PackageReference>
  </ItemGroup>
</Project>
`)
	writeFile(t, dir, "Legacy/packages.config", `<?xml version="1.0" encoding="utf-8"?>
<packages>
  <package id="EntityFramework" version="6.4.4" targetFramework="net48" />
  <package id="Oracle.ManagedDataAccess" version="21.12.0" targetFramework="net48" />
</packages>
`)
	writeFile(t, dir, "Legacy/Web.config", `<?xml version="1.0"?>
<configuration>
  <connectionStrings>
    <add name="Main" connectionString="Data Source=sql01;Initial Catalog=Shop;Integrated Security=True" providerName="System.Data.SqlClient" />
  </connectionStrings>
  <system.web>
    <compilation debug="true" targetFramework="4.8" />
  </system.web>
</configuration>
`)
	writeFile(t, dir, "bin/Debug/app.config", `<configuration><entityFramework/></configuration>`)

	got, err := Detect(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, []Technology{
		{Name: "MSBuild", Category: CategoryBuild, EvidencePath: "Api/Api.csproj"},
		{Name: "NuGet", Category: CategoryBuild, EvidencePath: "Legacy/packages.config"},
		{Name: ".NET", Category: CategoryRuntime, Version: "net8.0", EvidencePath: "Api/Api.csproj"},
		{Name: ".NET Framework", Category: CategoryRuntime, Version: "4.8", EvidencePath: "Legacy/Web.config"},
		{Name: "Dapper", Category: CategoryFramework, Version: "2.1.28", EvidencePath: "Api/Api.csproj"},
		{Name: "Entity Framework", Category: CategoryFramework, Version: "6.4.4", EvidencePath: "Legacy/packages.config"},
		{Name: "Entity Framework Core", Category: CategoryFramework, Version: "8.0.1", EvidencePath: "Api/Api.csproj"},
		{Name: "Oracle", Category: CategoryDatabase, Version: "21.12.0", EvidencePath: "Legacy/packages.config"},
		{Name: "PostgreSQL", Category: CategoryDatabase, Version: "8.0.0", EvidencePath: "Api/Api.csproj"},
		{Name: "SQL Server", Category: CategoryDatabase, EvidencePath: "Legacy/Web.config"},
	}, got)
}

func TestDetect_GradleAndProperties(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build.gradle", `plugins { id 'java' }
dependencies {
    implementation 'org.springframework.boot:spring-boot-starter-jdbc:3.1.0'
    runtimeOnly "com.microsoft.sqlserver:mssql-jdbc:12.4.2.jre11"
}
`)
	writeFile(t, dir, "config/application-prod.properties", `# production
spring.datasource.url=jdbc:postgresql://db:5432/app
mybatis.mapper-locations=classpath:mappers/*.xml
`)

	got, err := Detect(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, []Technology{
		{Name: "Gradle", Category: CategoryBuild, EvidencePath: "build.gradle"},
		{Name: "MyBatis", Category: CategoryFramework, EvidencePath: "config/application-prod.properties"},
		{Name: "Spring Boot", Category: CategoryFramework, Version: "3.1.0", EvidencePath: "build.gradle"},
		{Name: "PostgreSQL", Category: CategoryDatabase, EvidencePath: "config/application-prod.properties"},
		{Name: "SQL Server", Category: CategoryDatabase, Version: "12.4.2.jre11", EvidencePath: "build.gradle"},
	}, got)
}

func TestDetect_HibernateConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/hibernate.cfg.xml", `<hibernate-configuration>
  <session-factory>
    <property name="hibernate.dialect">org.hibernate.dialect.MySQL8Dialect</property>
    <property name="connection.url">jdbc:mysql://localhost/shop</property>
  </session-factory>
</hibernate-configuration>
`)

	got, err := Detect(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []Technology{
		{Name: "Hibernate", Category: CategoryFramework, EvidencePath: "src/hibernate.cfg.xml"},
		{Name: "MySQL", Category: CategoryDatabase, EvidencePath: "src/hibernate.cfg.xml"},
	}, got)
}

func TestDetect_ImportSample(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A.java", "import org.hibernate.Session;\nclass A {}\n")
	writeFile(t, dir, "B.java", "import org.jooq.DSLContext;\nclass B {}\n")

	got, err := Detect(context.Background(), dir, Options{ImportSample: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hibernate", got[0].Name)

	got, err = Detect(context.Background(), dir, Options{ImportSample: -1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_UnparsableDescriptorSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pom.xml", "<project><dependencies>")
	writeFile(t, dir, "appsettings.json", "{not json")

	got, err := Detect(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_SkipDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendor/pom.xml", springPOM)

	got, err := Detect(context.Background(), dir, Options{SkipDirs: []string{"vendor"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetect_MissingRoot(t *testing.T) {
	_, err := Detect(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)
}

func TestDetect_DockerCompose(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docker-compose.yml", `services:
  db:
    image: postgres:16-alpine
    environment:
      POSTGRES_DB: orders
      POSTGRES_USER: app
  legacy:
    image: registry.acme.com:5000/acme/ledger-db:2.1
    environment:
      - MYSQL_DATABASE=ledger
      - MYSQL_USER=ledger
  api:
    build: .
    environment:
      SPRING_DATASOURCE_URL: jdbc:oracle:thin:@ora:1521/ORCL
      DEBUG: true
`)
	writeFile(t, dir, "deploy/compose.yaml", `services:
  sql:
    image: mcr.microsoft.com/mssql/server:2022-latest
    environment:
      ACCEPT_EULA: "Y"
`)

	got, err := Detect(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Technology{
		{Name: "PostgreSQL", Category: CategoryDatabase, Version: "16", EvidencePath: "docker-compose.yml"},
		{Name: "MySQL", Category: CategoryDatabase, EvidencePath: "docker-compose.yml"},
		{Name: "Oracle", Category: CategoryDatabase, EvidencePath: "docker-compose.yml"},
		{Name: "SQL Server", Category: CategoryDatabase, Version: "2022", EvidencePath: "deploy/compose.yaml"},
	}, got)
}

func TestDetect_ComposeUnparsable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docker-compose.yml", "services: [\n")

	got, err := Detect(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIsComposeFile(t *testing.T) {
	tests := map[string]bool{
		"docker-compose.yml":          true,
		"docker-compose.yaml":         true,
		"docker-compose.override.yml": true,
		"compose.yaml":                true,
		"application.yml":             false,
		"compose.json":                false,
		"my-compose.yml":              false,
	}
	for base, want := range tests {
		assert.Equal(t, want, isComposeFile(base), base)
	}
}

func TestSplitImage(t *testing.T) {
	tests := []struct {
		image, repo, version string
	}{
		{"postgres", "postgres", ""},
		{"postgres:latest", "postgres", ""},
		{"mysql:8.0.36-oracle", "mysql", "8.0.36"},
		{"localhost:5000/mariadb:11", "localhost:5000/mariadb", "11"},
		{"localhost:5000/mariadb", "localhost:5000/mariadb", ""},
		{"Mongo:7@sha256:abc", "mongo", "7"},
	}
	for _, tt := range tests {
		repo, version := splitImage(tt.image)
		assert.Equal(t, tt.repo, repo, tt.image)
		assert.Equal(t, tt.version, version, tt.image)
	}
}

func TestDatabaseFromURL(t *testing.T) {
	tests := []struct {
		conn string
		want string
	}{
		{"jdbc:oracle:thin:@db:1521/ORCL", dbOracle},
		{"jdbc:postgresql://localhost/app", dbPostgreSQL},
		{"JDBC:SQLSERVER://db;databaseName=x", dbSQLServer},
		{"jdbc:jtds:sqlserver://db/x", dbSQLServer},
		{"jdbc:mariadb://db/x", dbMariaDB},
		{"postgres://u:p@db/app", dbPostgreSQL},
		{"Server=db;Port=5432;Database=app;User Id=u", dbPostgreSQL},
		{"Host=db;Database=app;Username=u", dbPostgreSQL},
		{"Server=db;Port=3306;Database=app", dbMySQL},
		{"Data Source=sql01;Initial Catalog=Shop;Integrated Security=True", dbSQLServer},
		{"Data Source=app.db", dbSQLite},
		{"(DESCRIPTION=(ADDRESS=(HOST=db))(CONNECT_DATA=(SERVICE_NAME=orcl)))", dbOracle},
		{"mongodb://db/app", dbMongoDB},
		{"redis://cache:6379", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, databaseFromURL(tt.conn), tt.conn)
	}
}

func TestServerDescriptor(t *testing.T) {
	tests := map[string]string{
		"weblogic.xml":               "WebLogic",
		"weblogic-application.xml":   "WebLogic",
		"jboss-web.xml":              "JBoss",
		"orders-ds.xml":              "JBoss",
		"ibm-web-bnd.xml":            "WebSphere",
		"ibm-application-ext.xmi":    "WebSphere",
		"web.xml":                    "",
		"weblogic-notes.txt":         "",
		"jboss-deployment-notes.txt": "",
	}
	for base, want := range tests {
		got, ok := serverDescriptor(base)
		assert.Equal(t, want != "", ok, base)
		assert.Equal(t, want, got, base)
	}
}
