package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"settle/services/library/internal/server"
)

type openAPIDoc struct {
	Paths      map[string]map[string]yaml.Node `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <openapi.yaml>\n", os.Args[0])
		os.Exit(2)
	}
	if err := check(os.Args[1], server.Routes()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

func check(path string, routes []string) error {
	doc, err := loadDoc(path)
	if err != nil {
		return err
	}
	errResp, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		return err
	}
	if err := validateErrorResponse(errResp); err != nil {
		return err
	}
	return ensureSameRoutes(documentedRoutes(doc), routes)
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

// validateErrorResponse checks the documented error body against the
// {statusCode, message, error} shape every handler writes.
func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	required := makeSet(s.Required)
	for _, field := range []string{"statusCode", "message", "error"} {
		if !required[field] {
			return fmt.Errorf("ErrorResponse.required must include %q", field)
		}
	}
	if prop, ok := s.Properties["statusCode"]; !ok || prop.Type != "integer" {
		return errors.New("ErrorResponse.statusCode must be integer")
	}
	if prop, ok := s.Properties["error"]; !ok || prop.Type != "string" {
		return errors.New("ErrorResponse.error must be string")
	}
	if _, ok := s.Properties["message"]; !ok {
		return errors.New("ErrorResponse.message must be declared")
	}
	return nil
}

// documentedRoutes renders every operation as "METHOD /path", the form the
// server's mux patterns use.
func documentedRoutes(doc openAPIDoc) []string {
	out := make([]string, 0, len(doc.Paths))
	for path, ops := range doc.Paths {
		for method := range ops {
			method = strings.ToLower(method)
			if !httpMethods[method] {
				continue
			}
			out = append(out, strings.ToUpper(method)+" "+path)
		}
	}
	return out
}

func ensureSameRoutes(documented, served []string) error {
	doc := makeSet(documented)
	srv := makeSet(served)
	var missing, extra []string
	for route := range srv {
		if !doc[route] {
			missing = append(missing, route)
		}
	}
	for route := range doc {
		if !srv[route] {
			extra = append(extra, route)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	switch {
	case len(missing) > 0 && len(extra) > 0:
		return fmt.Errorf("routes not documented: %v; documented but not served: %v", missing, extra)
	case len(missing) > 0:
		return fmt.Errorf("routes not documented: %v", missing)
	case len(extra) > 0:
		return fmt.Errorf("documented but not served: %v", extra)
	}
	return nil
}

func makeSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
