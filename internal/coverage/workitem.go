package coverage

// Kind identifies the artifact format a WorkItem carries (spec §3).
type Kind int

const (
	KindUnknown Kind = iota
	KindGcnoGcdaPair
	KindProfrawDirectoryHint
	KindLcovInfo
	KindJacocoXML
	KindGoCover
	KindGcovIntermediateText
	KindArchiveMember
)

func (k Kind) String() string {
	switch k {
	case KindGcnoGcdaPair:
		return "gcno_gcda_pair"
	case KindProfrawDirectoryHint:
		return "profraw_directory_hint"
	case KindLcovInfo:
		return "lcov_info"
	case KindJacocoXML:
		return "jacoco_xml"
	case KindGoCover:
		return "go_cover"
	case KindGcovIntermediateText:
		return "gcov_intermediate_text"
	case KindArchiveMember:
		return "archive_member"
	default:
		return "unknown"
	}
}

// Payload is whatever a producer needs to read the artifact: a path on
// disk, an archive member reference, or content already read into memory.
type Payload struct {
	// Path is a filesystem path, set when the artifact lives on disk.
	Path string

	// ArchiveMember is the path within an archive, set alongside ArchivePath
	// when Kind is KindArchiveMember.
	ArchivePath   string
	ArchiveMember string

	// Content holds in-memory bytes, used when the payload was already read
	// (e.g. an archive member's decompressed bytes, or a gcno/gcda pair
	// that Discovery read eagerly to co-locate them).
	Content []byte

	// GcdaContent holds the paired .gcda bytes when Kind is
	// KindGcnoGcdaPair and the .gcda sibling exists; it is nil when a .gcno
	// has no matching .gcda (spec §4.1: still a valid work item, zero
	// counts).
	GcdaContent []byte
}

// WorkItem is one unit handed from Discovery to Producers (spec §3).
type WorkItem struct {
	Kind       Kind
	Payload    Payload
	SourceRoot string
}
