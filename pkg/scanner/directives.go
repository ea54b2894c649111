package scanner

import (
	"bufio"
	"io"
	"strings"
)

// Directive line prefixes recognised inside build scripts.
const (
	prefixDescription = "#WHATIS:"
	prefixHomepage    = "#URL:"
	prefixDependency  = "#DEPENDENCY:"
)

// Dependency is one "#DEPENDENCY:name/versionToken" line. An empty Token
// asks for the latest version.
type Dependency struct {
	Name  string
	Token string
}

// String renders the dependency as it appears in a script.
func (d Dependency) String() string {
	if d.Token == "" {
		return d.Name
	}
	return d.Name + "/" + d.Token
}

// Directives is the metadata parsed from a build script.
type Directives struct {
	Description  string
	Homepage     string
	Dependencies []Dependency
}

// ParseDirectives reads directive lines from a build script. The first
// description and homepage lines win; every dependency line is kept in order.
func ParseDirectives(r io.Reader) (*Directives, error) {
	d := &Directives{}
	seenDescription, seenHomepage := false, false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		switch {
		case strings.HasPrefix(line, prefixDependency):
			if dep, ok := ParseDependency(strings.TrimPrefix(line, prefixDependency)); ok {
				d.Dependencies = append(d.Dependencies, dep)
			}
		case !seenDescription && strings.Contains(line, prefixDescription):
			d.Description = strings.TrimSpace(line[strings.Index(line, prefixDescription)+len(prefixDescription):])
			seenDescription = true
		case !seenHomepage && strings.Contains(line, prefixHomepage):
			d.Homepage = strings.TrimSpace(line[strings.Index(line, prefixHomepage)+len(prefixHomepage):])
			seenHomepage = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseDependency splits "name/versionToken" at the first slash. Reference
// data versions keep their inner slash: "grch38/gencode/v44" names grch38.
func ParseDependency(raw string) (Dependency, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Dependency{}, false
	}
	name, token, _ := strings.Cut(raw, "/")
	name = strings.TrimSpace(name)
	if name == "" {
		return Dependency{}, false
	}
	return Dependency{Name: name, Token: strings.TrimSpace(token)}, true
}
