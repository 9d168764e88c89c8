package serializer

import (
	"github.com/mvp-joe/apigraph/internal/comment"
)

// FormatVersion is the symbol graph format version emitted.
var FormatVersion = SemanticVersion{Major: 0, Minor: 5, Patch: 3}

// Generator names the producer in document metadata.
const Generator = "apigraph"

// Relationship kinds.
const (
	RelMemberOf     = "memberOf"
	RelInheritsFrom = "inheritsFrom"
	RelConformsTo   = "conformsTo"
	RelExtensionTo  = "extensionTo"
)

// Graph is a whole symbol graph document.
type Graph struct {
	Metadata      Metadata       `json:"metadata"`
	Module        Module         `json:"module"`
	Symbols       []Symbol       `json:"symbols"`
	Relationships []Relationship `json:"relationships"`
}

// SingleSymbol is the document describing one symbol and its context.
type SingleSymbol struct {
	Symbols        []Symbol        `json:"symbols"`
	RelatedSymbols []RelatedSymbol `json:"relatedSymbols"`
	Relationships  []Relationship  `json:"relationships"`
}

// Metadata describes the document itself.
type Metadata struct {
	FormatVersion SemanticVersion `json:"formatVersion"`
	Generator     string          `json:"generator"`
}

// SemanticVersion is a major.minor.patch triple.
type SemanticVersion struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Patch uint64 `json:"patch"`
}

// Module names the module the symbols belong to.
type Module struct {
	Name     string   `json:"name"`
	Platform Platform `json:"platform"`
}

// Platform is derived from the target triple.
type Platform struct {
	Architecture    string          `json:"architecture"`
	Vendor          string          `json:"vendor,omitempty"`
	OperatingSystem OperatingSystem `json:"operatingSystem"`
	Environment     string          `json:"environment,omitempty"`
}

// OperatingSystem names the target OS and its minimum version.
type OperatingSystem struct {
	Name           string           `json:"name"`
	MinimumVersion *SemanticVersion `json:"minimumVersion,omitempty"`
}

// Symbol is one serialized record.
type Symbol struct {
	Identifier           Identifier     `json:"identifier"`
	Kind                 SymbolKind     `json:"kind"`
	Names                Names          `json:"names"`
	PathComponents       []string       `json:"pathComponents"`
	DocComment           *DocComment    `json:"docComment,omitempty"`
	DeclarationFragments []Fragment     `json:"declarationFragments,omitempty"`
	Location             *Location      `json:"location,omitempty"`
	Availability         []Availability `json:"availability,omitempty"`
	AccessLevel          string         `json:"accessLevel"`
}

// Identifier is the precise identity of a symbol.
type Identifier struct {
	Precise           string `json:"precise"`
	InterfaceLanguage string `json:"interfaceLanguage"`
}

// SymbolKind is the language-qualified kind of a symbol.
type SymbolKind struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
}

// Names holds the titles used to present a symbol.
type Names struct {
	Title      string     `json:"title"`
	Navigator  []Fragment `json:"navigator,omitempty"`
	SubHeading []Fragment `json:"subHeading,omitempty"`
}

// DocComment is a symbol's documentation.
type DocComment struct {
	Lines []comment.Line `json:"lines"`
}

// Fragment is one declaration token.
type Fragment struct {
	Kind              string `json:"kind"`
	Spelling          string `json:"spelling"`
	PreciseIdentifier string `json:"preciseIdentifier,omitempty"`
}

// Location is a file position; line and character are zero-based.
type Location struct {
	URI      string   `json:"uri"`
	Position Position `json:"position"`
}

// Position is a zero-based line and character.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Availability is one platform availability entry.
type Availability struct {
	Domain                       string           `json:"domain"`
	Introduced                   *SemanticVersion `json:"introduced,omitempty"`
	Deprecated                   *SemanticVersion `json:"deprecated,omitempty"`
	Obsoleted                    *SemanticVersion `json:"obsoleted,omitempty"`
	IsUnconditionallyDeprecated  bool             `json:"isUnconditionallyDeprecated,omitempty"`
	IsUnconditionallyUnavailable bool             `json:"isUnconditionallyUnavailable,omitempty"`
	Message                      string           `json:"message,omitempty"`
}

// Relationship links two symbols.
type Relationship struct {
	Kind           string `json:"kind"`
	Source         string `json:"source"`
	Target         string `json:"target"`
	TargetFallback string `json:"targetFallback,omitempty"`
}

// RelatedSymbol summarizes a symbol that gives context to the anchor of a
// single-symbol document.
type RelatedSymbol struct {
	USR                 string     `json:"usr"`
	Name                string     `json:"name"`
	Kind                string     `json:"kind"`
	AccessLevel         string     `json:"accessLevel"`
	FromSystemHeader    bool       `json:"fromSystemHeader"`
	SubHeading          []Fragment `json:"subHeading,omitempty"`
	DeclarationLanguage string     `json:"declarationLanguage"`
	ModuleName          string     `json:"moduleName"`
}
