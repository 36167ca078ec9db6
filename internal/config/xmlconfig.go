package config

import (
	"encoding/xml"
	"io"
	"strings"

	"gitlab.com/hg2git/hg2git/internal/xlog"
)

// xmlNode is a generic parse tree node. Decoding into this instead of a
// tightly-typed struct lets the loader walk the tree itself and reject any
// element it doesn't recognize, rather than silently dropping it the way
// encoding/xml's normal unmarshaling would.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// RawProject is the as-parsed (pre-resolution) shape of a Default or
// Project element.
type RawProject struct {
	Name                   string
	Branch                 string
	InheritDefault         string
	InheritDefaultMappings string
	ExplicitOnly           string
	NeedsProjects          []string
	Vars                   []RawVar
	Replace                []RawReplace
	MapBranch              []RawMapRule
	MapTag                 []RawMapRule
}

type RawVar struct {
	Name  string
	Value string
}

type RawReplace struct {
	Chars string
	With  string
}

type RawMapRule struct {
	Source      string // Branch attr for MapBranch, Tag attr for MapTag
	Refname     *string
	RevisionRef *string
}

// RawConfig is the as-parsed configuration tree.
type RawConfig struct {
	Default  *RawProject
	Projects []RawProject
}

// LoadXML parses the configuration document: a root element containing an
// optional Default and any number of Project children. Unknown elements
// or attribute values are configuration errors - never silently ignored -
// so a drifted schema fails loudly instead of quietly misbehaving.
func LoadXML(r io.Reader) (*RawConfig, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, xlog.Throw(xlog.Config, "malformed configuration XML: %v", err)
	}
	cfg := &RawConfig{}
	for _, child := range root.Children {
		switch child.XMLName.Local {
		case "Default":
			if cfg.Default != nil {
				return nil, xlog.Throw(xlog.Config, "configuration has more than one <Default> element")
			}
			rp, err := parseProject(&child)
			if err != nil {
				return nil, err
			}
			cfg.Default = rp
		case "Project":
			rp, err := parseProject(&child)
			if err != nil {
				return nil, err
			}
			cfg.Projects = append(cfg.Projects, *rp)
		default:
			return nil, xlog.Throw(xlog.Config, "unknown configuration element <%s>", child.XMLName.Local)
		}
	}
	return cfg, nil
}

func parseProject(n *xmlNode) (*RawProject, error) {
	rp := &RawProject{
		Name:                   attrOr(n, "Name", "*"),
		Branch:                 attrOr(n, "Branch", ""),
		InheritDefault:         attrOr(n, "InheritDefault", "Yes"),
		InheritDefaultMappings: attrOr(n, "InheritDefaultMappings", "Yes"),
		ExplicitOnly:           attrOr(n, "ExplicitOnly", "No"),
	}
	if needs, ok := n.attr("NeedsProjects"); ok && needs != "" {
		for _, part := range strings.Split(needs, ",") {
			rp.NeedsProjects = append(rp.NeedsProjects, strings.TrimSpace(part))
		}
	}
	for _, flag := range []string{"InheritDefault", "InheritDefaultMappings", "ExplicitOnly"} {
		v, _ := n.attr(flag)
		if v != "" && v != "Yes" && v != "No" {
			return nil, xlog.Throw(xlog.Config, "%s=%q on project %q must be Yes or No", flag, v, rp.Name)
		}
	}

	for _, child := range n.Children {
		switch child.XMLName.Local {
		case "Vars":
			for _, varNode := range child.Children {
				rp.Vars = append(rp.Vars, RawVar{Name: varNode.XMLName.Local, Value: varNode.Text})
			}
		case "Replace":
			chars, _ := child.attr("Chars")
			with, _ := child.attr("With")
			rp.Replace = append(rp.Replace, RawReplace{Chars: chars, With: with})
		case "MapBranch":
			rule, err := parseMapRule(&child, "Branch")
			if err != nil {
				return nil, err
			}
			rp.MapBranch = append(rp.MapBranch, rule)
		case "MapTag":
			rule, err := parseMapRule(&child, "Tag")
			if err != nil {
				return nil, err
			}
			rp.MapTag = append(rp.MapTag, rule)
		default:
			return nil, xlog.Throw(xlog.Config, "unknown element <%s> inside project %q", child.XMLName.Local, rp.Name)
		}
	}
	return rp, nil
}

func parseMapRule(n *xmlNode, sourceAttr string) (RawMapRule, error) {
	source, ok := n.attr(sourceAttr)
	if !ok {
		return RawMapRule{}, xlog.Throw(xlog.Config, "<%s> is missing required %s attribute", n.XMLName.Local, sourceAttr)
	}
	rule := RawMapRule{Source: source}
	if refname, ok := n.attr("Refname"); ok {
		rule.Refname = &refname
	}
	if n.XMLName.Local == "MapBranch" {
		if rev, ok := n.attr("RevisionRef"); ok {
			rule.RevisionRef = &rev
		}
	}
	return rule, nil
}

func attrOr(n *xmlNode, name, fallback string) string {
	if v, ok := n.attr(name); ok {
		return v
	}
	return fallback
}
