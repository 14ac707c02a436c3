package techstack

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"log/slog"
	"strings"
)

type msbuildPackage struct {
	Include     string `xml:"Include,attr"`
	Version     string `xml:"Version,attr"`
	VersionElem string `xml:"Version"`
}

type msbuildProject struct {
	SDK            string `xml:"Sdk,attr"`
	PropertyGroups []struct {
		TargetFramework        string `xml:"TargetFramework"`
		TargetFrameworks       string `xml:"TargetFrameworks"`
		TargetFrameworkVersion string `xml:"TargetFrameworkVersion"`
	} `xml:"PropertyGroup"`
	Packages   []msbuildPackage `xml:"ItemGroup>PackageReference"`
	References []msbuildPackage `xml:"ItemGroup>Reference"`
}

// packageRules classify NuGet package and assembly names by prefix.
var packageRules = []struct {
	prefix   string
	name     string
	category Category
}{
	{"microsoft.entityframeworkcore", "Entity Framework Core", CategoryFramework},
	{"entityframework", "Entity Framework", CategoryFramework},
	{"system.data.entity", "Entity Framework", CategoryFramework},
	{"system.data.linq", "LINQ to SQL", CategoryFramework},
	{"nhibernate", "NHibernate", CategoryFramework},
	{"dapper", "Dapper", CategoryFramework},
	{"npgsql", dbPostgreSQL, CategoryDatabase},
	{"oracle.manageddataaccess", dbOracle, CategoryDatabase},
	{"oracle.dataaccess", dbOracle, CategoryDatabase},
	{"mysql.data", dbMySQL, CategoryDatabase},
	{"mysqlconnector", dbMySQL, CategoryDatabase},
	{"system.data.sqlclient", dbSQLServer, CategoryDatabase},
	{"microsoft.data.sqlclient", dbSQLServer, CategoryDatabase},
	{"microsoft.data.sqlite", dbSQLite, CategoryDatabase},
	{"system.data.sqlite", dbSQLite, CategoryDatabase},
	{"ibm.data.db2", dbDB2, CategoryDatabase},
}

func classifyPackage(id, version, rel string, add addFunc) {
	// Reference Include values carry ", Version=..." suffixes.
	id, _, _ = strings.Cut(id, ",")
	lower := strings.ToLower(strings.TrimSpace(id))
	for _, r := range packageRules {
		if strings.HasPrefix(lower, r.prefix) {
			add(Technology{Name: r.name, Category: r.category, Version: version, EvidencePath: rel})
			return
		}
	}
}

func detectProject(rel string, data []byte, add addFunc) {
	var p msbuildProject
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		slog.Debug("unparsable project file", "path", rel, "error", err)
		return
	}
	add(Technology{Name: "MSBuild", Category: CategoryBuild, EvidencePath: rel})

	var framework string
	for _, g := range p.PropertyGroups {
		framework = firstNonEmpty(framework, g.TargetFramework, firstTarget(g.TargetFrameworks), g.TargetFrameworkVersion)
	}
	if framework != "" {
		add(runtimeFor(framework, rel))
	}

	for _, pkg := range p.Packages {
		classifyPackage(pkg.Include, firstNonEmpty(pkg.Version, pkg.VersionElem), rel, add)
	}
	for _, ref := range p.References {
		classifyPackage(ref.Include, "", rel, add)
	}
}

func firstTarget(list string) string {
	first, _, _ := strings.Cut(list, ";")
	return first
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// runtimeFor names the .NET flavor of a target framework moniker.
func runtimeFor(tfm, rel string) Technology {
	name := ".NET"
	lower := strings.ToLower(tfm)
	switch {
	case strings.HasPrefix(lower, "v"), strings.HasPrefix(lower, "net4"), strings.HasPrefix(lower, "net3"), strings.HasPrefix(lower, "net2"):
		name = ".NET Framework"
	case strings.HasPrefix(lower, "netcoreapp"):
		name = ".NET Core"
	}
	return Technology{Name: name, Category: CategoryRuntime, Version: tfm, EvidencePath: rel}
}

type packagesConfig struct {
	Packages []struct {
		ID      string `xml:"id,attr"`
		Version string `xml:"version,attr"`
	} `xml:"package"`
}

func detectPackagesConfig(rel string, data []byte, add addFunc) {
	var pc packagesConfig
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&pc); err != nil {
		slog.Debug("unparsable packages.config", "path", rel, "error", err)
		return
	}
	add(Technology{Name: "NuGet", Category: CategoryBuild, EvidencePath: rel})
	for _, p := range pc.Packages {
		classifyPackage(p.ID, p.Version, rel, add)
	}
}

type dotnetConfig struct {
	ConnectionStrings []struct {
		Name             string `xml:"name,attr"`
		ConnectionString string `xml:"connectionString,attr"`
		ProviderName     string `xml:"providerName,attr"`
	} `xml:"connectionStrings>add"`
	Compilation struct {
		TargetFramework string `xml:"targetFramework,attr"`
	} `xml:"system.web>compilation"`
	Startup struct {
		SKU string `xml:"sku,attr"`
	} `xml:"startup>supportedRuntime"`
	EntityFramework *struct{} `xml:"entityFramework"`
	Hibernate       *struct{} `xml:"hibernate-configuration"`
}

func detectDotnetConfig(rel string, data []byte, add addFunc) {
	var c dotnetConfig
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		slog.Debug("unparsable config", "path", rel, "error", err)
		return
	}
	for _, cs := range c.ConnectionStrings {
		addDatabase(add, firstNonEmpty(databaseFromProvider(cs.ProviderName), databaseFromURL(cs.ConnectionString)), rel)
		if strings.Contains(strings.ToLower(cs.ConnectionString), "metadata=res://") {
			add(Technology{Name: "Entity Framework", Category: CategoryFramework, EvidencePath: rel})
		}
	}
	if v := firstNonEmpty(c.Compilation.TargetFramework, skuVersion(c.Startup.SKU)); v != "" {
		add(Technology{Name: ".NET Framework", Category: CategoryRuntime, Version: v, EvidencePath: rel})
	}
	if c.EntityFramework != nil {
		add(Technology{Name: "Entity Framework", Category: CategoryFramework, EvidencePath: rel})
	}
	if c.Hibernate != nil {
		add(Technology{Name: "NHibernate", Category: CategoryFramework, EvidencePath: rel})
	}
}

// skuVersion extracts "v4.8" from ".NETFramework,Version=v4.8".
func skuVersion(sku string) string {
	_, v, ok := strings.Cut(sku, "Version=")
	if !ok {
		return ""
	}
	return v
}

func detectAppSettings(rel string, data []byte, add addFunc) {
	var settings struct {
		ConnectionStrings map[string]string `json:"ConnectionStrings"`
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		slog.Debug("unparsable appsettings", "path", rel, "error", err)
		return
	}
	for _, cs := range settings.ConnectionStrings {
		addDatabase(add, databaseFromURL(cs), rel)
	}
}
