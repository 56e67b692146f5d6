package model

import "strings"

// Gender is the enumerated gender recorded on a patient.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// AllGenders lists the accepted genders in display order.
var AllGenders = []Gender{GenderMale, GenderFemale, GenderOther}

// ParseGender matches s case-insensitively against the accepted genders and
// returns the canonical value.
func ParseGender(s string) (Gender, bool) {
	s = strings.TrimSpace(s)
	for _, g := range AllGenders {
		if strings.EqualFold(s, string(g)) {
			return g, true
		}
	}
	return "", false
}

// MessageKind identifies the payload carried by a SyncMessage.
type MessageKind string

const (
	MessageRecordAdded      MessageKind = "RECORD_ADDED"
	MessageRecordsRefreshed MessageKind = "RECORDS_REFRESHED"
)

// CacheState describes how a registry's cached patient list relates to the store.
type CacheState string

const (
	CacheEmpty   CacheState = "empty"
	CacheLoading CacheState = "loading"
	CacheFresh   CacheState = "fresh"
	CacheStale   CacheState = "stale" // Last refresh failed; the previous cache is retained.
)
