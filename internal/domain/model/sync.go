package model

// SyncMessage is the envelope broadcast between tabs after a mutation.
// Exactly one of Record or Records is set, according to Kind.
type SyncMessage struct {
	Kind    MessageKind
	Record  *Patient
	Records []Patient
}

// NewRecordAdded builds a RECORD_ADDED message for p.
func NewRecordAdded(p Patient) SyncMessage {
	return SyncMessage{Kind: MessageRecordAdded, Record: &p}
}

// NewRecordsRefreshed builds a RECORDS_REFRESHED message carrying the full list.
func NewRecordsRefreshed(ps []Patient) SyncMessage {
	return SyncMessage{Kind: MessageRecordsRefreshed, Records: ClonePatients(ps)}
}

// Clone returns a deep copy of the message so receivers never share memory
// with the sender.
func (m SyncMessage) Clone() SyncMessage {
	out := SyncMessage{Kind: m.Kind}
	if m.Record != nil {
		rec := *m.Record
		out.Record = &rec
	}
	if m.Records != nil {
		out.Records = ClonePatients(m.Records)
	}
	return out
}

// ChangeEvent is delivered to registry subscribers when a remote message
// changes the cache. Snapshot is a private copy of the cache after the change.
type ChangeEvent struct {
	Kind     MessageKind
	Added    *Patient
	Snapshot []Patient
}
