package techstack

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

// serverDescriptor names the application server a deployment descriptor
// belongs to.
func serverDescriptor(base string) (string, bool) {
	switch {
	case strings.HasPrefix(base, "weblogic") && strings.HasSuffix(base, ".xml"):
		return "WebLogic", true
	case strings.HasPrefix(base, "jboss-") && strings.HasSuffix(base, ".xml"),
		strings.HasSuffix(base, "-ds.xml"):
		return "JBoss", true
	case strings.HasPrefix(base, "ibm-web-") || strings.HasPrefix(base, "ibm-application-") || strings.HasPrefix(base, "ibm-ejb-jar-"):
		return "WebSphere", true
	}
	return "", false
}

type hibernateConfig struct {
	Properties []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"session-factory>property"`
}

func detectHibernateConfig(rel string, data []byte, add addFunc) {
	add(Technology{Name: "Hibernate", Category: CategoryFramework, EvidencePath: rel})

	var c hibernateConfig
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		slog.Debug("unparsable hibernate config", "path", rel, "error", err)
		return
	}
	for _, p := range c.Properties {
		name := strings.TrimPrefix(p.Name, "hibernate.")
		val := strings.TrimSpace(p.Value)
		switch name {
		case "dialect":
			addDatabase(add, databaseFromDialect(val), rel)
		case "connection.url":
			addDatabase(add, databaseFromURL(val), rel)
		case "connection.driver_class":
			addDatabase(add, databaseFromProvider(val), rel)
		}
	}
}

// urlKeys are property keys whose value is a JDBC URL.
var urlKeys = map[string]bool{
	"spring.datasource.url":        true,
	"spring.datasource.jdbc-url":   true,
	"spring.flyway.url":            true,
	"spring.liquibase.url":         true,
	"hibernate.connection.url":     true,
	"javax.persistence.jdbc.url":   true,
	"jakarta.persistence.jdbc.url": true,
	"jdbc.url":                     true,
	"db.url":                       true,
	"database.url":                 true,
}

// springProperty records what one flattened Spring property key reveals.
func springProperty(key, val, rel string, add addFunc) {
	key = strings.ToLower(key)
	switch {
	case urlKeys[key]:
		addDatabase(add, databaseFromURL(val), rel)
	case strings.HasSuffix(key, "hibernate.dialect"):
		add(Technology{Name: "Hibernate", Category: CategoryFramework, EvidencePath: rel})
		addDatabase(add, databaseFromDialect(val), rel)
	case strings.HasSuffix(key, ".driver-class-name") || strings.HasSuffix(key, ".driverclassname") || key == "jdbc.driver":
		addDatabase(add, databaseFromProvider(val), rel)
	}
	if strings.HasPrefix(key, "spring.") {
		add(Technology{Name: "Spring Boot", Category: CategoryFramework, EvidencePath: rel})
	}
	if strings.HasPrefix(key, "mybatis.") {
		add(Technology{Name: "MyBatis", Category: CategoryFramework, EvidencePath: rel})
	}
}

func detectProperties(rel string, data []byte, add addFunc) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64<<10), maxDescriptorBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			key, val, ok = strings.Cut(line, ":")
		}
		if ok {
			springProperty(strings.TrimSpace(key), strings.TrimSpace(val), rel, add)
		}
	}
}

func detectSpringYAML(rel string, data []byte, add addFunc) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			slog.Debug("unparsable yaml", "path", rel, "error", err)
			return
		}
		flatten("", doc, func(key, val string) { springProperty(key, val, rel, add) })
	}
}

// flatten walks nested maps and yields dotted keys with scalar values.
func flatten(prefix string, node any, yield func(key, val string)) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, yield)
		}
	case []any:
		for _, child := range v {
			flatten(prefix, child, yield)
		}
	case string:
		yield(prefix, v)
	default:
		yield(prefix, "")
	}
}

// importRules map Java import prefixes to frameworks.
var importRules = []struct {
	prefix   string
	name     string
	category Category
}{
	{"org.springframework.boot", "Spring Boot", CategoryFramework},
	{"org.springframework", "Spring", CategoryFramework},
	{"org.hibernate", "Hibernate", CategoryFramework},
	{"javax.persistence", "JPA", CategoryFramework},
	{"jakarta.persistence", "JPA", CategoryFramework},
	{"org.apache.ibatis", "MyBatis", CategoryFramework},
	{"org.mybatis", "MyBatis", CategoryFramework},
	{"org.jooq", "jOOQ", CategoryFramework},
	{"weblogic.", "WebLogic", CategoryServer},
	{"org.jboss", "JBoss", CategoryServer},
	{"com.ibm.websphere", "WebSphere", CategoryServer},
}

var importRe = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+)`)

func detectJavaImports(rel string, data []byte, add addFunc) {
	for _, m := range importRe.FindAllSubmatch(data, -1) {
		pkg := string(m[1])
		for _, r := range importRules {
			if strings.HasPrefix(pkg, r.prefix) {
				add(Technology{Name: r.name, Category: r.category, EvidencePath: rel})
				break
			}
		}
	}
	if m := jdbcRe.Find(data); m != nil {
		addDatabase(add, databaseFromURL(string(m)), rel)
	}
}
