// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/cargoscope/cargoscope/pkg/cargotoml"
)

const fallbackWorkspaceName = "workspace"

type (
	// WorkspaceMember is one resolved member of a workspace root.
	WorkspaceMember struct {
		Name      string `json:"name" yaml:"name"`
		Path      string `json:"path" yaml:"path"`
		IsCurrent bool   `json:"is_current" yaml:"is_current"`
	}

	// WorkspaceInfo describes a single project's place in a workspace.
	WorkspaceInfo struct {
		IsWorkspace         bool              `json:"is_workspace" yaml:"is_workspace"`
		Members             []WorkspaceMember `json:"members" yaml:"members"`
		RootPath            string            `json:"root_path,omitempty" yaml:"root_path,omitempty"`
		IsMemberOfWorkspace bool              `json:"is_member_of_workspace" yaml:"is_member_of_workspace"`
		ParentWorkspacePath string            `json:"parent_workspace_path,omitempty" yaml:"parent_workspace_path,omitempty"`
		ParentWorkspaceName string            `json:"parent_workspace_name,omitempty" yaml:"parent_workspace_name,omitempty"`
	}
)

// WorkspaceInfo reports whether the project at dir is a workspace root with
// members, or otherwise which ancestor workspace lists it as a member.
// Members without a Cargo.toml are left out of the member list.
func (d *Discovery) WorkspaceInfo(dir string) WorkspaceInfo {
	dir = filepath.Clean(dir)
	r := NewResolver(d.parse, d.logger)

	if m, err := d.parse(filepath.Join(dir, cargotoml.ManifestFileName)); err == nil && len(m.MemberPatterns()) > 0 {
		info := WorkspaceInfo{IsWorkspace: true, RootPath: dir, Members: []WorkspaceMember{}}
		for _, member := range r.expandMembers(dir, m.MemberPatterns()) {
			memberManifest := filepath.Join(member, cargotoml.ManifestFileName)
			if _, err := os.Stat(memberManifest); err != nil {
				continue
			}
			name := filepath.Base(member)
			if mm, err := d.parse(memberManifest); err == nil && mm.Package != nil && mm.Package.Name != "" {
				name = mm.Package.Name
			}
			info.Members = append(info.Members, WorkspaceMember{Name: name, Path: member, IsCurrent: member == dir})
		}
		return info
	}

	info := WorkspaceInfo{Members: []WorkspaceMember{}}
	if parent := d.findParentWorkspace(r, dir); parent != "" {
		info.IsMemberOfWorkspace = true
		info.ParentWorkspacePath = parent
		info.ParentWorkspaceName = filepath.Base(parent)
		if info.ParentWorkspaceName == "" || info.ParentWorkspaceName == string(filepath.Separator) {
			info.ParentWorkspaceName = fallbackWorkspaceName
		}
	}
	return info
}

// findParentWorkspace returns the nearest ancestor whose declared members
// include dir.
func (d *Discovery) findParentWorkspace(r *Resolver, dir string) string {
	current := dir
	for range maxAncestorSteps {
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent

		m, err := d.parse(filepath.Join(current, cargotoml.ManifestFileName))
		if err != nil || len(m.MemberPatterns()) == 0 {
			continue
		}
		if slices.Contains(r.expandMembers(current, m.MemberPatterns()), dir) {
			return current
		}
	}
	return ""
}
