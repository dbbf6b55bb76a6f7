package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIElement is a JSON-friendly element representation.
type CLIElement struct {
	Name          string `json:"name"`
	ShortName     string `json:"short_name,omitempty"`
	QualifiedName string `json:"qualified_name"`
	Kind          string `json:"kind"`
	Visibility    string `json:"visibility"`
	Library       bool   `json:"library,omitempty"`
	Document      string `json:"document,omitempty"`
}

// CLIMember is a JSON-friendly visible-member representation.
type CLIMember struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Kind          string `json:"kind"`
	Visibility    string `json:"visibility"`
}

// CLIDocument is a JSON-friendly document representation.
type CLIDocument struct {
	URI      string `json:"uri"`
	Language string `json:"language"`
	Library  bool   `json:"library,omitempty"`
}

// CLIDiagnostic is a JSON-friendly diagnostic representation.
type CLIDiagnostic struct {
	Message  string `json:"message"`
	Element  string `json:"element,omitempty"`
	Property string `json:"property,omitempty"`
}

// CLIBool wraps a boolean query answer so JSON output stays an object.
type CLIBool struct {
	Value bool `json:"value"`
}
