package command

import (
	"fmt"
	"strings"
)

// Attribute keys recognised on parser commands.
const (
	AttrScope    = "scope"
	AttrFile     = "file"
	AttrName     = "name"
	AttrResource = "resource"
	AttrID       = "id"
)

// ParserID identifies which translator configuration a command refers to:
// a predefined name, a bundled resource path or a file path.
type ParserID struct {
	Name         string
	ResourcePath string
	File         string
}

// NewParserID builds an identifier from message attributes and the
// positional argument. It fails when argument, file, name, resource and id
// are all blank.
//
// Only name, resource and file are carried into the result: argument and id
// take part in the presence check alone.
func NewParserID(attributes map[string]string, argument string) (ParserID, error) {
	file := attributes[AttrFile]
	name := attributes[AttrName]
	resource := attributes[AttrResource]
	id := attributes[AttrID]

	if isBlank(argument) && isBlank(file) && isBlank(name) && isBlank(resource) && isBlank(id) {
		return ParserID{}, &Error{
			Code:    ErrCodeMissingIdentifier,
			Message: fmt.Sprintf("command requires either attribute 'name', 'file', 'resource', 'id' or single argument (attributes: %v, argument: %q)", attributes, argument),
		}
	}
	return ParserID{Name: name, ResourcePath: resource, File: file}, nil
}

// Key is the registry key: the first non-blank of resource, file and name,
// tagged with its kind.
func (id ParserID) Key() string {
	switch {
	case !isBlank(id.ResourcePath):
		return "resource:" + id.ResourcePath
	case !isBlank(id.File):
		return "file:" + id.File
	default:
		return "name:" + id.Name
	}
}

// String implements fmt.Stringer.
func (id ParserID) String() string {
	var parts []string
	if id.Name != "" {
		parts = append(parts, "name="+id.Name)
	}
	if id.ResourcePath != "" {
		parts = append(parts, "resource="+id.ResourcePath)
	}
	if id.File != "" {
		parts = append(parts, "file="+id.File)
	}
	return "ParserID{" + strings.Join(parts, ", ") + "}"
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
