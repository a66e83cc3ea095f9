package converter

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Known artifact base names.
const (
	roleWalkthrough = "walkthrough"
	rolePlan        = "implementation_plan"
	roleTask        = "task"
)

var baseNameRe = regexp.MustCompile(`^(.+?)\.md`)

// artifact is the representative file of one base-name group.
type artifact struct {
	base    string
	path    string
	size    int64
	info    os.FileInfo
	content string
}

// artifactSet is every group representative in a session, keyed by base name.
type artifactSet map[string]*artifact

// baseName returns the part of a file name before the first ".md", or "" if there is none.
func baseName(name string) string {
	m := baseNameRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// discoverArtifacts groups the regular files of dir by base name and keeps the
// largest file of each group. Ties go to the first file in name order.
func discoverArtifacts(dir string, logger *slog.Logger) artifactSet {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("failed to list session", "dir", dir, "error", err)
		return artifactSet{}
	}

	set := make(artifactSet)
	for _, e := range entries {
		base := baseName(e.Name())
		if base == "" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if cur, ok := set[base]; ok && cur.size >= info.Size() {
			continue
		}
		set[base] = &artifact{base: base, path: path, size: info.Size(), info: info}
	}

	for _, a := range set {
		a.content = readFile(a.path)
	}
	return set
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// content returns the text of the named group, or "" if the session has none.
func (s artifactSet) content(base string) string {
	if a, ok := s[base]; ok {
		return a.content
	}
	return ""
}

// others returns the base names outside the known roles, sorted ascending.
func (s artifactSet) others() []string {
	var keys []string
	for k := range s {
		switch k {
		case roleWalkthrough, rolePlan, roleTask:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sectionTitle turns "data_flow_notes" into "Data Flow Notes". A letter is upper-cased
// when the rune before it is not a letter and lower-cased otherwise.
func sectionTitle(base string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range strings.ReplaceAll(base, "_", " ") {
		if unicode.IsLetter(r) {
			if prevLetter {
				r = unicode.ToLower(r)
			} else {
				r = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
