package core

import "fmt"

// ModeKind tags an IngestMode variant.
type ModeKind int

// ModeKind constants.
const (
	ModeNontemporalSnapshot ModeKind = iota
	ModeNontemporalDelta
	ModeAppendOnly
	ModeUnitemporalDelta
	ModeUnitemporalSnapshot
	ModeBitemporal
)

var modeKindNames = map[ModeKind]string{
	ModeNontemporalSnapshot: "nontemporal_snapshot",
	ModeNontemporalDelta:    "nontemporal_delta",
	ModeAppendOnly:          "append_only",
	ModeUnitemporalDelta:    "unitemporal_delta",
	ModeUnitemporalSnapshot: "unitemporal_snapshot",
	ModeBitemporal:          "bitemporal",
}

// String returns the mode name used in job files.
func (k ModeKind) String() string {
	if name, ok := modeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ModeKind(%d)", int(k))
}

// ParseModeKind resolves a mode name.
func ParseModeKind(s string) (ModeKind, error) {
	for k, n := range modeKindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown ingest mode %q", s)
}

// IngestMode is the closed set of milestoning strategies.
type IngestMode interface {
	Kind() ModeKind
	Dedup() DedupPolicy
	Versioning() VersioningPolicy
	ingestMode()
}

// Auditing stamps nontemporal rows with batch values. Both fields are optional.
type Auditing struct {
	DateTimeField string // receives the batch start timestamp
	BatchIDField  string // receives the allocated batch id
}

// Keying selects the transaction-time columns of a temporal mode.
type Keying int

// Keying constants.
const (
	KeyBatchID Keying = iota
	KeyBatchTime
	KeyBatchIDAndTime
)

// String returns the keying name used in job files.
func (k Keying) String() string {
	switch k {
	case KeyBatchID:
		return "batch_id"
	case KeyBatchTime:
		return "batch_time"
	case KeyBatchIDAndTime:
		return "batch_id_and_time"
	default:
		return fmt.Sprintf("Keying(%d)", int(k))
	}
}

// ParseKeying resolves a keying name; the empty string is KeyBatchID.
func ParseKeying(s string) (Keying, error) {
	switch s {
	case "", "batch_id":
		return KeyBatchID, nil
	case "batch_time", "datetime":
		return KeyBatchTime, nil
	case "batch_id_and_time", "batch_id_and_datetime":
		return KeyBatchIDAndTime, nil
	default:
		return 0, fmt.Errorf("unknown transaction keying %q", s)
	}
}

// Transaction names the transaction-time columns written by temporal modes.
type Transaction struct {
	Keying       Keying
	BatchIDIn    string
	BatchIDOut   string
	BatchTimeIn  string
	BatchTimeOut string
}

// WithDefaults fills unset column names.
func (t Transaction) WithDefaults() Transaction {
	if t.BatchIDIn == "" {
		t.BatchIDIn = "batch_id_in"
	}
	if t.BatchIDOut == "" {
		t.BatchIDOut = "batch_id_out"
	}
	if t.BatchTimeIn == "" {
		t.BatchTimeIn = "batch_time_in"
	}
	if t.BatchTimeOut == "" {
		t.BatchTimeOut = "batch_time_out"
	}
	return t
}

// UsesBatchID reports whether batch id columns are maintained.
func (t Transaction) UsesBatchID() bool {
	return t.Keying == KeyBatchID || t.Keying == KeyBatchIDAndTime
}

// UsesBatchTime reports whether batch time columns are maintained.
func (t Transaction) UsesBatchTime() bool {
	return t.Keying == KeyBatchTime || t.Keying == KeyBatchIDAndTime
}

// DeleteIndicator marks staging rows whose indicator column holds one of
// Values as soft deletes.
type DeleteIndicator struct {
	Values []any
}

// Partitioning scopes a unitemporal snapshot to partitions. With only Fields
// set, the partitions present in staging are replaced. Values restricts each
// field to a list; Specs is an OR of AND-ed field/value maps.
type Partitioning struct {
	Fields []string
	Values map[string][]any
	Specs  []map[string]any
}

// ValidityKind selects the valid-time shape of a bitemporal mode.
type ValidityKind int

// ValidityKind constants.
const (
	ValidFromOnly ValidityKind = iota
	ValidFromThrough
)

// String returns the validity name used in job files.
func (v ValidityKind) String() string {
	if v == ValidFromThrough {
		return "from_through"
	}
	return "from_only"
}

// Validity names the valid-time target columns of a bitemporal main table.
// The source columns are the staging fields tagged RoleValidityFrom and
// RoleValidityThrough.
type Validity struct {
	Kind          ValidityKind
	FromTarget    string
	ThroughTarget string
}

// WithDefaults fills unset column names.
func (v Validity) WithDefaults() Validity {
	if v.FromTarget == "" {
		v.FromTarget = "validity_from_target"
	}
	if v.ThroughTarget == "" {
		v.ThroughTarget = "validity_through_target"
	}
	return v
}

// NontemporalSnapshot replaces main with the staging snapshot.
type NontemporalSnapshot struct {
	Auditing   Auditing
	DedupBy    DedupPolicy
	VersionBy  VersioningPolicy
	EmptyBatch EmptyBatchHandling
}

// NontemporalDelta upserts staging into main keyed on the primary key.
type NontemporalDelta struct {
	Auditing        Auditing
	DeleteIndicator *DeleteIndicator
	DedupBy         DedupPolicy
	VersionBy       VersioningPolicy
}

// AppendOnly inserts staging rows into main.
type AppendOnly struct {
	Auditing              Auditing
	FilterExistingRecords bool // skip rows whose key and digest already exist in main
	DedupBy               DedupPolicy
	VersionBy             VersioningPolicy
}

// UnitemporalDelta closes changed rows and opens their new versions.
type UnitemporalDelta struct {
	Transaction     Transaction
	DeleteIndicator *DeleteIndicator
	DedupBy         DedupPolicy
	VersionBy       VersioningPolicy
}

// UnitemporalSnapshot closes rows missing from staging and opens new ones.
type UnitemporalSnapshot struct {
	Transaction  Transaction
	Partitioning *Partitioning
	EmptyBatch   EmptyBatchHandling
	DedupBy      DedupPolicy
	VersionBy    VersioningPolicy
}

// Bitemporal milestones both transaction time and valid time.
type Bitemporal struct {
	Transaction     Transaction
	Validity        Validity
	DeleteIndicator *DeleteIndicator
	DedupBy         DedupPolicy
	VersionBy       VersioningPolicy
}

func (NontemporalSnapshot) ingestMode() {}
func (NontemporalDelta) ingestMode() {}
func (AppendOnly) ingestMode() {}
func (UnitemporalDelta) ingestMode() {}
func (UnitemporalSnapshot) ingestMode() {}
func (Bitemporal) ingestMode() {}

// Kind implements IngestMode.
func (NontemporalSnapshot) Kind() ModeKind { return ModeNontemporalSnapshot }

// Kind implements IngestMode.
func (NontemporalDelta) Kind() ModeKind { return ModeNontemporalDelta }

// Kind implements IngestMode.
func (AppendOnly) Kind() ModeKind { return ModeAppendOnly }

// Kind implements IngestMode.
func (UnitemporalDelta) Kind() ModeKind { return ModeUnitemporalDelta }

// Kind implements IngestMode.
func (UnitemporalSnapshot) Kind() ModeKind { return ModeUnitemporalSnapshot }

// Kind implements IngestMode.
func (Bitemporal) Kind() ModeKind { return ModeBitemporal }

// Dedup implements IngestMode.
func (m NontemporalSnapshot) Dedup() DedupPolicy { return m.DedupBy }

// Dedup implements IngestMode.
func (m NontemporalDelta) Dedup() DedupPolicy { return m.DedupBy }

// Dedup implements IngestMode.
func (m AppendOnly) Dedup() DedupPolicy { return m.DedupBy }

// Dedup implements IngestMode.
func (m UnitemporalDelta) Dedup() DedupPolicy { return m.DedupBy }

// Dedup implements IngestMode.
func (m UnitemporalSnapshot) Dedup() DedupPolicy { return m.DedupBy }

// Dedup implements IngestMode.
func (m Bitemporal) Dedup() DedupPolicy { return m.DedupBy }

// Versioning implements IngestMode.
func (m NontemporalSnapshot) Versioning() VersioningPolicy { return m.VersionBy }

// Versioning implements IngestMode.
func (m NontemporalDelta) Versioning() VersioningPolicy { return m.VersionBy }

// Versioning implements IngestMode.
func (m AppendOnly) Versioning() VersioningPolicy { return m.VersionBy }

// Versioning implements IngestMode.
func (m UnitemporalDelta) Versioning() VersioningPolicy { return m.VersionBy }

// Versioning implements IngestMode.
func (m UnitemporalSnapshot) Versioning() VersioningPolicy { return m.VersionBy }

// Versioning implements IngestMode.
func (m Bitemporal) Versioning() VersioningPolicy { return m.VersionBy }

// TransactionOf returns the transaction settings of a temporal mode.
func TransactionOf(m IngestMode) (Transaction, bool) {
	switch m := m.(type) {
	case UnitemporalDelta:
		return m.Transaction.WithDefaults(), true
	case UnitemporalSnapshot:
		return m.Transaction.WithDefaults(), true
	case Bitemporal:
		return m.Transaction.WithDefaults(), true
	default:
		return Transaction{}, false
	}
}
