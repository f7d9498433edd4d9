// Package model defines the shared data types for the sync engine: rules,
// intents, projections, the ledger, the manifest, and managed blocks. These
// types carry validation and small in-memory helpers (on Edit and
// ManagedBlock) but do no I/O — the packages that operate on them
// (manifest, ledger, projector, blocks, syncengine) own the logic.
package model

import (
	"regexp"
	"time"
)

// ruleIDPattern matches safe rule identifiers: unique, filesystem-safe,
// 1-64 characters.
var ruleIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidRuleID reports whether id is a well-formed rule identifier.
func ValidRuleID(id string) bool {
	return ruleIDPattern.MatchString(id)
}

// Rule is a single declarative rule: a markdown body tagged with an ID and
// optional tags. The UUID is stable across content edits so managed blocks
// that reference it do not churn.
type Rule struct {
	ID      string   `toml:"id" json:"id"`
	UUID    string   `toml:"uuid" json:"uuid"`
	Content string   `toml:"content" json:"content"`
	Tags    []string `toml:"tags,omitempty" json:"tags,omitempty"`
}

// ProjectionKind discriminates the three ways a projection can be realized
// on disk.
type ProjectionKind string

const (
	// KindFileManaged means the entire file is authored by the sync engine.
	KindFileManaged ProjectionKind = "FileManaged"
	// KindTextBlock means a UUID-delimited region inside a mixed-authorship
	// file is owned by the sync engine.
	KindTextBlock ProjectionKind = "TextBlock"
	// KindJSONKey means a single structured value at a dotted key path is
	// owned by the sync engine.
	KindJSONKey ProjectionKind = "JsonKey"
)

// Projection is a single on-disk change produced by sync, recorded in the
// ledger. Exactly one of the kind-specific field groups is populated,
// selected by Kind.
type Projection struct {
	Tool string         `toml:"tool" json:"tool"`
	File string         `toml:"file" json:"file"`
	Kind ProjectionKind `toml:"kind" json:"kind"`

	// Checksum is the hex-sha256 of the projected content. Present for all
	// kinds (FileManaged: whole file; TextBlock: block content; JsonKey:
	// canonicalized value).
	Checksum string `toml:"checksum" json:"checksum"`

	// MarkerUUID identifies the managed block. TextBlock only.
	MarkerUUID string `toml:"marker_uuid,omitempty" json:"marker_uuid,omitempty"`

	// KeyPath is the dotted key path. JsonKey only.
	KeyPath string `toml:"key_path,omitempty" json:"key_path,omitempty"`

	// Value is the serialized JSON-like value at KeyPath. JsonKey only.
	Value string `toml:"value,omitempty" json:"value,omitempty"`
}

// Intent is a single declarative decision (add this rule, add this tool)
// and the ordered projections it produced.
type Intent struct {
	ID          string         `toml:"id" json:"id"`
	UUID        string         `toml:"uuid" json:"uuid"`
	Timestamp   time.Time      `toml:"timestamp" json:"timestamp"`
	Args        map[string]any `toml:"args,omitempty" json:"args,omitempty"`
	Projections []Projection   `toml:"projections,omitempty" json:"projections,omitempty"`
}

// LedgerMeta holds bookkeeping fields for the ledger file.
type LedgerMeta struct {
	SchemaVersion  int       `toml:"schema_version" json:"schema_version"`
	CreatedAt      time.Time `toml:"created_at" json:"created_at"`
	LastModifiedAt time.Time `toml:"last_modified_at" json:"last_modified_at"`
}

// Ledger is the persistent, append-and-replace record of every intent
// declared and every projection it produced.
type Ledger struct {
	Meta    LedgerMeta `toml:"meta" json:"meta"`
	Intents []Intent   `toml:"intents" json:"intents"`
}

// CurrentSchemaVersion is the ledger schema version this package writes.
const CurrentSchemaVersion = 1

// Mode selects whether a project works from a single checkout or from
// sibling/contained git worktrees.
type Mode string

const (
	ModeStandard  Mode = "standard"
	ModeWorktrees Mode = "worktrees"
)

// HookEvent names a point in the project lifecycle a manifest can attach
// shell commands to.
type HookEvent string

const (
	HookPreBranchCreate   HookEvent = "pre-branch-create"
	HookPostBranchCreate  HookEvent = "post-branch-create"
	HookPreBranchDelete   HookEvent = "pre-branch-delete"
	HookPostBranchDelete  HookEvent = "post-branch-delete"
	HookPreSync           HookEvent = "pre-sync"
	HookPostSync          HookEvent = "post-sync"
	HookPreAgentComplete  HookEvent = "pre-agent-complete"
	HookPostAgentComplete HookEvent = "post-agent-complete"
)

// Manifest is a single configuration layer (process-global, org, repo, or
// repo-local-overrides), as read from one config.toml-shaped file.
type Manifest struct {
	Mode    Mode                `toml:"mode,omitempty" json:"mode,omitempty"`
	Tools   []string            `toml:"tools,omitempty" json:"tools,omitempty"`
	Presets []string            `toml:"presets,omitempty" json:"presets,omitempty"`
	Rules   []Rule              `toml:"rules,omitempty" json:"rules,omitempty"`
	Hooks   map[string][]string `toml:"hooks,omitempty" json:"hooks,omitempty"`
}

// ResolvedConfig is the read-only result of merging manifest layers: the
// active tool set, preset set, and rule set the sync engine will project.
type ResolvedConfig struct {
	Mode    Mode
	Tools   []string
	Presets []string
	Rules   []Rule
	Hooks   map[string][]string
}

// Format identifies the syntax of a managed-block host document.
type Format string

const (
	FormatTOML     Format = "toml"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Span is a byte offset/length pair into a source string.
type Span struct {
	Offset int
	Length int
}

// ManagedBlock describes one UUID-tagged region found inside a document.
type ManagedBlock struct {
	UUID        string
	Format      Format
	StartSpan   Span
	ContentSpan Span
	EndSpan     Span
}

// Content returns the block's content slice of source.
func (b ManagedBlock) Content(source string) string {
	return source[b.ContentSpan.Offset : b.ContentSpan.Offset+b.ContentSpan.Length]
}

// BlockLocationKind selects where a new block is inserted.
type BlockLocationKind int

const (
	LocationStartOfFile BlockLocationKind = iota
	LocationEndOfFile
	LocationAfterBlock
	LocationOffset
)

// BlockLocation describes an insertion point for a new managed block.
type BlockLocation struct {
	Kind      BlockLocationKind
	AfterUUID string // LocationAfterBlock
	Offset    int    // LocationOffset
}

// Edit is a reversible record of a single text-level modification, returned
// alongside the new source by every block-editing operation so callers can
// compute checksums without re-scanning.
type Edit struct {
	// Offset is where the edit was applied in the original source.
	Offset int
	// Removed is the length of text removed from the original source.
	Removed int
	// Inserted is the text inserted in its place.
	Inserted string
}

// Delta is the net change in document length this edit produced.
func (e Edit) Delta() int {
	return len(e.Inserted) - e.Removed
}

// Apply returns the result of applying e to source.
func (e Edit) Apply(source string) string {
	return source[:e.Offset] + e.Inserted + source[e.Offset+e.Removed:]
}

// Invert returns the edit that undoes e when applied to e.Apply(source).
func (e Edit) Invert(source string) Edit {
	removedText := source[e.Offset : e.Offset+e.Removed]
	return Edit{
		Offset:   e.Offset,
		Removed:  len(e.Inserted),
		Inserted: removedText,
	}
}

// Layout identifies the on-disk project arrangement.
type Layout string

const (
	LayoutClassic         Layout = "classic"
	LayoutInRepoWorktrees Layout = "in_repo_worktrees"
	LayoutContainer       Layout = "container"
)

// Feature describes a single named worktree.
type Feature struct {
	Name   string
	Branch string
	Path   string
}

// DriftState classifies the relationship between a ledger projection and
// the on-disk reality at check time.
type DriftState string

const (
	DriftHealthy  DriftState = "Healthy"
	DriftMissing  DriftState = "Missing"
	DriftModified DriftState = "Modified"
	DriftExtra    DriftState = "Extra"
)

// DriftItem is one row of a check/fix report.
type DriftItem struct {
	Projection Projection
	State      DriftState
}
