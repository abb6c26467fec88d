package router

import (
	"net/url"
	"sort"
	"strings"

	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/location"
)

// Routes is a table of named route patterns. Patterns use ":name" for a
// single segment, ":name:type" for a typed segment (int, uint, uuid) and
// "*name" for the rest of the path:
//
//	rt := router.NewRoutes()
//	rt.Add("users.show", "/users/:id:int")
//	rt.Add("docs", "/docs/*slug")
//
// The table is read-only once the router is running.
type Routes struct {
	root   *routeNode
	byName map[string]*routeDef
}

type routeDef struct {
	name     string
	pattern  string
	segments []string
}

// routeNode is a node of the matching tree.
type routeNode struct {
	segment    string
	isParam    bool
	isCatchAll bool
	paramName  string
	paramType  string
	route      *routeDef

	children      []*routeNode
	paramChild    *routeNode
	catchAllChild *routeNode
}

// RouteMatch is the result of matching a path.
type RouteMatch struct {
	Name    string
	Pattern string
	Params  map[string]string
}

// NewRoutes returns an empty table.
func NewRoutes() *Routes {
	return &Routes{
		root:   &routeNode{},
		byName: make(map[string]*routeDef),
	}
}

// Add registers pattern under name, replacing any earlier route with the
// same name or pattern.
func (rt *Routes) Add(name, pattern string) *Routes {
	def := &routeDef{name: name, pattern: pattern, segments: splitPath(pattern)}
	rt.byName[name] = def
	rt.root.insert(def.segments).route = def
	return rt
}

// Names returns the registered route names, sorted.
func (rt *Routes) Names() []string {
	names := make([]string, 0, len(rt.byName))
	for name := range rt.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match finds the route for path. Static segments win over parameters,
// parameters over catch-alls.
func (rt *Routes) Match(path string) (RouteMatch, bool) {
	if rt == nil {
		return RouteMatch{}, false
	}
	clean, err := canonicalPath(path)
	if err != nil {
		return RouteMatch{}, false
	}
	params := make(map[string]string)
	node, ok := rt.root.match(splitPath(clean), params)
	if !ok {
		return RouteMatch{}, false
	}
	return RouteMatch{Name: node.route.name, Pattern: node.route.pattern, Params: params}, true
}

// Build fills the named route's pattern with params. Parameters the
// pattern does not use are appended as query string pairs.
func (rt *Routes) Build(name string, params map[string]string) (string, error) {
	if rt == nil {
		return "", errors.New("N001").WithDetail("no route table")
	}
	def, ok := rt.byName[name]
	if !ok {
		return "", errors.New("N001").WithDetail("unknown route " + name)
	}

	used := make(map[string]bool)
	parts := make([]string, 0, len(def.segments))
	for _, seg := range def.segments {
		switch {
		case strings.HasPrefix(seg, "*"):
			key := seg[1:]
			used[key] = true
			if v := params[key]; v != "" {
				parts = append(parts, v)
			}
		case strings.HasPrefix(seg, ":"):
			key, typ := parseParamSegment(seg)
			v, ok := params[key]
			if !ok {
				return "", errors.New("N001").WithDetail("route " + name + " needs parameter " + key)
			}
			if err := ValidateParam(v, typ); err != nil {
				return "", errors.New("N001").WithDetail("route " + name).Wrap(err)
			}
			used[key] = true
			parts = append(parts, url.PathEscape(v))
		default:
			parts = append(parts, seg)
		}
	}

	path := "/" + strings.Join(parts, "/")
	var extra []location.Pair
	for _, k := range sortedKeys(params) {
		if !used[k] {
			extra = append(extra, location.Pair{Key: k, Value: params[k]})
		}
	}
	if len(extra) > 0 {
		path += "?" + location.EncodeQuery(extra)
	}
	return path, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *routeNode) findChild(segment string) *routeNode {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

func (n *routeNode) insert(segments []string) *routeNode {
	current := n
	for _, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "*"):
			if current.catchAllChild == nil {
				current.catchAllChild = &routeNode{isCatchAll: true, paramName: seg[1:]}
			}
			return current.catchAllChild
		case strings.HasPrefix(seg, ":"):
			if current.paramChild == nil {
				name, typ := parseParamSegment(seg)
				current.paramChild = &routeNode{isParam: true, paramName: name, paramType: typ}
			}
			current = current.paramChild
		default:
			child := current.findChild(seg)
			if child == nil {
				child = &routeNode{segment: seg}
				current.children = append(current.children, child)
			}
			current = child
		}
	}
	return current
}

func (n *routeNode) match(segments []string, params map[string]string) (*routeNode, bool) {
	if len(segments) == 0 {
		if n.route != nil {
			return n, true
		}
		if n.catchAllChild != nil && n.catchAllChild.route != nil {
			params[n.catchAllChild.paramName] = ""
			return n.catchAllChild, true
		}
		return nil, false
	}

	segment, remaining := segments[0], segments[1:]

	if child := n.findChild(segment); child != nil {
		if node, ok := child.match(remaining, params); ok {
			return node, true
		}
	}

	if p := n.paramChild; p != nil {
		if value, ok := decodeSegment(segment); ok && ValidateParam(value, p.paramType) == nil {
			params[p.paramName] = value
			if node, ok := p.match(remaining, params); ok {
				return node, true
			}
			delete(params, p.paramName)
		}
	}

	if c := n.catchAllChild; c != nil && c.route != nil {
		rest := strings.Join(segments, "/")
		if value, err := url.PathUnescape(rest); err == nil {
			rest = value
		}
		params[c.paramName] = rest
		return c, true
	}

	return nil, false
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parseParamSegment splits ":id" or ":id:int" into name and type.
func parseParamSegment(seg string) (name, paramType string) {
	seg = seg[1:]
	if idx := strings.Index(seg, ":"); idx != -1 {
		return seg[:idx], seg[idx+1:]
	}
	return seg, "string"
}
