package archive

import (
	"bufio"
	"bytes"
	"strings"
)

// Manifest attributes used by the launcher.
const (
	AttrMainClass  = "Main-Class"
	AttrStartClass = "Start-Class"
)

// Manifest holds the main-section attributes of a jar manifest.
type Manifest map[string]string

// ParseManifest reads the main section: "Name: value" lines, where a line that
// starts with a single space continues the previous value. Parsing stops at the
// first blank line.
func ParseManifest(data []byte) Manifest {
	m := Manifest{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var key string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if len(m) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, " ") && key != "" {
			m[key] += line[1:]
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(k)
		m[key] = strings.TrimSpace(v)
	}
	return m
}

// EntryPoint returns the application class: Start-Class when the archive uses a
// launcher as Main-Class, otherwise Main-Class.
func (m Manifest) EntryPoint() string {
	if v := m[AttrStartClass]; v != "" {
		return v
	}
	return m[AttrMainClass]
}
