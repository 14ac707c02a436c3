package techstack

import (
	"fmt"
	"log/slog"
	"strings"

	"go.yaml.in/yaml/v3"
)

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image       string    `yaml:"image"`
	Environment yaml.Node `yaml:"environment"`
}

// imageEngines map image repository substrings to databases. mariadb comes
// before mysql since MariaDB images often carry both names.
var imageEngines = []struct {
	match string
	name  string
}{
	{"mariadb", dbMariaDB},
	{"mysql", dbMySQL},
	{"postgres", dbPostgreSQL},
	{"mssql", dbSQLServer},
	{"sqlserver", dbSQLServer},
	{"oracle", dbOracle},
	{"mongo", dbMongoDB},
	{"db2", dbDB2},
}

// envEngines map the init variables of official database images to the
// database, for services built from a custom image.
var envEngines = []struct {
	prefix string
	name   string
}{
	{"MARIADB_", dbMariaDB},
	{"MYSQL_", dbMySQL},
	{"POSTGRES_", dbPostgreSQL},
	{"MSSQL_", dbSQLServer},
	{"SA_PASSWORD", dbSQLServer},
	{"ORACLE_", dbOracle},
	{"MONGO_INITDB_", dbMongoDB},
}

func isComposeFile(base string) bool {
	for _, ext := range []string{".yml", ".yaml"} {
		name, ok := strings.CutSuffix(base, ext)
		if !ok {
			continue
		}
		if name == "compose" || name == "docker-compose" || strings.HasPrefix(name, "docker-compose.") {
			return true
		}
	}
	return false
}

// detectCompose finds database services in a docker-compose file by image,
// then by init environment, and database URLs handed to application services.
func detectCompose(rel string, data []byte, add addFunc) {
	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		slog.Debug("unparsable compose file", "path", rel, "error", err)
		return
	}
	for name, svc := range cf.Services {
		env, err := composeEnv(&svc.Environment)
		if err != nil {
			slog.Debug("unparsable service environment", "path", rel, "service", name, "error", err)
		}

		repo, tag := splitImage(svc.Image)
		db := imageEngine(repo)
		if db == "" {
			// a custom image's tag says nothing about the database version
			db, tag = envEngine(env), ""
		}
		if db != "" {
			add(Technology{Name: db, Category: CategoryDatabase, Version: tag, EvidencePath: rel})
		}

		for key, val := range env {
			if strings.HasSuffix(key, "_URL") || strings.HasSuffix(key, "CONNECTION_STRING") {
				addDatabase(add, databaseFromURL(val), rel)
			}
		}
	}
}

// composeEnv reads environment in either map or KEY=value list form.
func composeEnv(node *yaml.Node) (map[string]string, error) {
	env := map[string]string{}
	switch node.Kind {
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return env, err
		}
		for k, v := range m {
			if v != nil {
				env[k] = fmt.Sprint(v)
			} else {
				env[k] = ""
			}
		}
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return env, err
		}
		for _, item := range items {
			k, v, _ := strings.Cut(item, "=")
			env[k] = v
		}
	}
	return env, nil
}

// splitImage returns the lowercased repository of an image reference and its
// version, taken from the tag up to the first '-'. "latest" has no version.
func splitImage(image string) (repo, version string) {
	image, _, _ = strings.Cut(strings.ToLower(image), "@")
	repo = image
	slash := strings.LastIndexByte(image, '/')
	if colon := strings.LastIndexByte(image, ':'); colon > slash {
		repo, version = image[:colon], image[colon+1:]
	}
	version, _, _ = strings.Cut(version, "-")
	if version == "latest" {
		version = ""
	}
	return repo, version
}

func imageEngine(repo string) string {
	for _, e := range imageEngines {
		if strings.Contains(repo, e.match) {
			return e.name
		}
	}
	return ""
}

func envEngine(env map[string]string) string {
	for _, e := range envEngines {
		for key := range env {
			if strings.HasPrefix(key, e.prefix) {
				return e.name
			}
		}
	}
	return ""
}
