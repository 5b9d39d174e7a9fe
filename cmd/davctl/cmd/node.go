package cmd

import (
	"path"
	"strings"

	"github.com/xxxsen/davmount/entity"
)

// dirNode wraps a remote directory path as a node; directory paths always
// carry a trailing slash.
func dirNode(p string) *entity.Node {
	p = strings.TrimPrefix(p, "/")
	if len(p) > 0 && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return &entity.Node{Path: p, IsDir: true}
}

// fileNode wraps a remote file path as a node.
func fileNode(p string) *entity.Node {
	return &entity.Node{Path: strings.TrimPrefix(p, "/")}
}

// splitRemote separates a remote path into its parent directory node and
// leaf name.
func splitRemote(p string) (*entity.Node, string) {
	p = strings.TrimSuffix(strings.TrimPrefix(p, "/"), "/")
	dir, name := path.Split(p)
	return dirNode(dir), name
}
