package docgen

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// DiagramPaths expands a file listing into the sorted set of every file and
// every ancestor folder. Folders carry a trailing slash.
func DiagramPaths(listing []string) []string {
	set := make(map[string]bool)
	for _, p := range listing {
		p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
		if p == "" {
			continue
		}
		parts := strings.Split(p, "/")
		for i := 1; i < len(parts); i++ {
			set[strings.Join(parts[:i], "/")+"/"] = true
		}
		set[p] = true
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FallbackDiagram renders paths from DiagramPaths as a mermaid graph
// without a model call: one node per path, each linked to its parent.
func FallbackDiagram(paths []string) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, p := range paths {
		id := nodeID(p)
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", id, escapeLabel(label(p)))
		if parent := parentFolder(p); parent != "" {
			fmt.Fprintf(&b, "    %s --> %s\n", nodeID(parent), id)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func parentFolder(p string) string {
	dir := path.Dir(strings.TrimSuffix(p, "/"))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir + "/"
}

func label(p string) string {
	name := path.Base(strings.TrimSuffix(p, "/"))
	if strings.HasSuffix(p, "/") {
		return name + "/"
	}
	return name
}

var idReplacer = strings.NewReplacer("/", "_", ".", "_", "-", "_", " ", "_")

// nodeID keeps folder and file ids apart even when their names collide.
func nodeID(p string) string {
	if strings.HasSuffix(p, "/") {
		return "d_" + idReplacer.Replace(strings.TrimSuffix(p, "/"))
	}
	return "f_" + idReplacer.Replace(p)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
