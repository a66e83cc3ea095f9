package converter

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const noteTemplate = `# %s

**Created:** %s
**Last Updated:** %s
**Tags:** #Development #Research
**Status:** ✅ Complete

---

## 📋 Overview

> **Summary:** %s

### Abstract

%s

---

## 📝 Content

%s
`

// AbstractFallback replaces an abstract that would only repeat the overview.
const AbstractFallback = "See details in Content section."

const dateLayout = "2006-01-02"

var (
	illegalNameRe = regexp.MustCompile(`[\\/*?:"<>|]`)
	hyphenRunRe   = regexp.MustCompile(`-+`)
)

// Note describes a generated note file.
type Note struct {
	SessionID string
	Title     string
	Overview  string
	Abstract  string
	Content   string
	Created   time.Time
	Updated   time.Time
	FileName  string
	Path      string
	Images    []string

	newAssets []string
}

// Render formats the note with the fixed template.
func (n *Note) Render() string {
	return fmt.Sprintf(noteTemplate,
		n.Title,
		n.Created.Format(dateLayout),
		n.Updated.Format(dateLayout),
		n.Overview,
		n.Abstract,
		n.Content,
	)
}

// FileName derives a file-system safe note name from a title.
func FileName(title string) string {
	name := strings.ReplaceAll(title, "_-_", "-")
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, " ", "-")
	name = illegalNameRe.ReplaceAllString(name, "")
	name = hyphenRunRe.ReplaceAllString(name, "-")
	return name + ".md"
}

// rewriteLinks turns file:// links into the local repository into web source links.
func (c *Converter) rewriteLinks(text string) string {
	if c.opts.LocalRepoPath == "" || c.opts.RepoBaseURL == "" {
		return text
	}
	prefix := "file://" + c.opts.LocalRepoPath
	replacement := c.opts.RepoBaseURL + "/" + c.opts.RepoBranch
	return strings.ReplaceAll(text, prefix, replacement)
}
