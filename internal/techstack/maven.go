package techstack

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"regexp"
	"strings"
)

type pomCoord struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type pomProperty struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pomProject struct {
	pomCoord
	Parent     pomCoord      `xml:"parent"`
	Properties struct {
		Items []pomProperty `xml:",any"`
	} `xml:"properties"`
	Deps       []pomCoord    `xml:"dependencies>dependency"`
	Managed    []pomCoord    `xml:"dependencyManagement>dependencies>dependency"`
	Plugins    []pomCoord    `xml:"build>plugins>plugin"`
}

// artifactRules classify Maven coordinates, first match wins. The needle is
// matched against "groupId:artifactId".
var artifactRules = []struct {
	needle   string
	name     string
	category Category
}{
	{"org.springframework.boot:", "Spring Boot", CategoryFramework},
	{"org.springframework", "Spring", CategoryFramework},
	{"org.hibernate", "Hibernate", CategoryFramework},
	{"org.mybatis", "MyBatis", CategoryFramework},
	{"javax.persistence", "JPA", CategoryFramework},
	{"jakarta.persistence", "JPA", CategoryFramework},
	{"org.eclipse.persistence", "EclipseLink", CategoryFramework},
	{"org.jooq", "jOOQ", CategoryFramework},
	{"org.flywaydb", "Flyway", CategoryFramework},
	{"org.liquibase", "Liquibase", CategoryFramework},
	{"com.oracle.weblogic", "WebLogic", CategoryServer},
	{"com.oracle.database.jdbc:", dbOracle, CategoryDatabase},
	{":ojdbc", dbOracle, CategoryDatabase},
	{"org.postgresql:", dbPostgreSQL, CategoryDatabase},
	{"mysql:mysql-connector", dbMySQL, CategoryDatabase},
	{"com.mysql:", dbMySQL, CategoryDatabase},
	{"org.mariadb.jdbc:", dbMariaDB, CategoryDatabase},
	{"com.microsoft.sqlserver:", dbSQLServer, CategoryDatabase},
	{"net.sourceforge.jtds:", dbSQLServer, CategoryDatabase},
	{"com.ibm.db2", dbDB2, CategoryDatabase},
	{"com.h2database:", dbH2, CategoryDatabase},
	{"org.xerial:sqlite-jdbc", dbSQLite, CategoryDatabase},
}

func classifyArtifact(group, artifact, version, rel string, add addFunc) {
	coord := strings.ToLower(group + ":" + artifact)
	for _, r := range artifactRules {
		if strings.Contains(coord, r.needle) {
			add(Technology{Name: r.name, Category: r.category, Version: version, EvidencePath: rel})
			return
		}
	}
}

func detectPOM(rel string, data []byte, add addFunc) {
	var p pomProject
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		slog.Debug("unparsable pom", "path", rel, "error", err)
		return
	}
	add(Technology{Name: "Maven", Category: CategoryBuild, EvidencePath: rel})

	props := map[string]string{
		"project.version":        p.Version,
		"project.parent.version": p.Parent.Version,
	}
	for _, prop := range p.Properties.Items {
		props[prop.XMLName.Local] = strings.TrimSpace(prop.Value)
	}
	resolve := func(v string) string {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
			return props[v[2:len(v)-1]]
		}
		return v
	}

	if p.Parent.ArtifactID != "" {
		classifyArtifact(p.Parent.GroupID, p.Parent.ArtifactID, resolve(p.Parent.Version), rel, add)
	}
	for _, group := range [][]pomCoord{p.Deps, p.Managed, p.Plugins} {
		for _, d := range group {
			classifyArtifact(d.GroupID, d.ArtifactID, resolve(d.Version), rel, add)
		}
	}
}

// gradleDepRe matches "group:artifact:version" and "group:artifact"
// dependency notations.
var gradleDepRe = regexp.MustCompile(`["']([\w.\-]+):([\w.\-]+)(?::([\w.\-]+))?["']`)

func detectGradle(rel string, data []byte, add addFunc) {
	add(Technology{Name: "Gradle", Category: CategoryBuild, EvidencePath: rel})
	for _, m := range gradleDepRe.FindAllSubmatch(data, -1) {
		classifyArtifact(string(m[1]), string(m[2]), string(m[3]), rel, add)
	}
}
