// Package transfer implements the adaptive file-transfer policy and its
// executor: deciding how a sandbox file crosses to the caller when its size
// or type makes a naive transfer unsafe, then moving the bytes.
package transfer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Strategy is the caller-requested download option.
type Strategy string

const (
	StrategyAuto          Strategy = "auto"
	StrategyPartial       Strategy = "download_partial"
	StrategyConvertToText Strategy = "convert_to_text"
	StrategyCompress      Strategy = "compress_file"
	StrategyForce         Strategy = "force_download"
)

// ParseStrategy validates a caller-supplied strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyPartial, StrategyConvertToText, StrategyCompress, StrategyForce:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown download_option %q", s)
	}
}

// MimeClass is the coarse content class inferred for a remote file.
type MimeClass string

const (
	MimeText    MimeClass = "text"
	MimeBinary  MimeClass = "binary"
	MimeImage   MimeClass = "image"
	MimeArchive MimeClass = "archive"
)

var extClasses = map[string]MimeClass{
	".txt": MimeText, ".log": MimeText, ".md": MimeText, ".csv": MimeText,
	".tsv": MimeText, ".json": MimeText, ".yaml": MimeText, ".yml": MimeText,
	".toml": MimeText, ".xml": MimeText, ".html": MimeText, ".htm": MimeText,
	".py": MimeText, ".go": MimeText, ".js": MimeText, ".ts": MimeText,
	".sh": MimeText, ".sql": MimeText, ".ini": MimeText, ".cfg": MimeText,
	".env": MimeText, ".rst": MimeText,

	".png": MimeImage, ".jpg": MimeImage, ".jpeg": MimeImage, ".gif": MimeImage,
	".bmp": MimeImage, ".svg": MimeImage, ".webp": MimeImage,

	".zip": MimeArchive, ".tar": MimeArchive, ".gz": MimeArchive,
	".tgz": MimeArchive, ".bz2": MimeArchive, ".xz": MimeArchive,
	".7z": MimeArchive, ".rar": MimeArchive,
}

// ClassifyPath infers the mime class from the file extension.
// Unknown extensions are treated as binary.
func ClassifyPath(path string) MimeClass {
	if c, ok := extClasses[strings.ToLower(filepath.Ext(path))]; ok {
		return c
	}
	return MimeBinary
}

// SupportsTextConversion reports whether textual extraction is meaningful
// for the class. Images and archives are refused: extraction would
// fabricate content.
func (m MimeClass) SupportsTextConversion() bool {
	return m == MimeText || m == MimeBinary
}

// FileMetadata is the read-only snapshot of a remote stat, used for the
// duration of one transfer decision.
type FileMetadata struct {
	Size int64
	Mime MimeClass
}

// Request is the caller's transfer intent. Immutable once constructed.
type Request struct {
	Path        string
	SizeCeiling int64    // Bytes; transfers above this need an explicit strategy.
	Strategy    Strategy
	ChunkSizeKB int   // Chunk length for partial transfers, in KiB.
	Offset      int64 // Starting offset for partial transfers.
}

// ChunkLength returns the chunk byte length, applying the 64 KiB default.
func (r Request) ChunkLength() int64 {
	kb := r.ChunkSizeKB
	if kb <= 0 {
		kb = 64
	}
	return int64(kb) * 1024
}

// PlanKind tags the active variant of a Plan.
type PlanKind string

const (
	PlanFull           PlanKind = "full_transfer"
	PlanChunked        PlanKind = "chunked_transfer"
	PlanTextConversion PlanKind = "text_conversion"
	PlanCompressed     PlanKind = "compressed_transfer"
	PlanForced         PlanKind = "forced_transfer"
	PlanRejected       PlanKind = "rejected"
)

// Plan is the policy's decision: a tagged variant, exactly one kind active.
// Offset/Length are populated only for PlanChunked; Reason only for
// PlanRejected.
type Plan struct {
	Kind   PlanKind
	Offset int64
	Length int64
	Reason string
}
