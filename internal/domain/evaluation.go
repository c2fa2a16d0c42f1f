package domain

import (
	"encoding/json"
	"sort"
)

// MessageSet is an immutable, sorted set of rationale messages.
// The zero value is the empty set. Values are safe to share between goroutines.
type MessageSet struct {
	items []string
}

// NewMessageSet builds a set from msgs, dropping empty strings and duplicates.
func NewMessageSet(msgs ...string) MessageSet {
	return MessageSet{}.With(msgs...)
}

// With returns a new set holding the receiver's messages plus msgs.
func (s MessageSet) With(msgs ...string) MessageSet {
	seen := make(map[string]struct{}, len(s.items)+len(msgs))
	items := make([]string, 0, len(s.items)+len(msgs))
	for _, m := range s.items {
		seen[m] = struct{}{}
		items = append(items, m)
	}
	for _, m := range msgs {
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		items = append(items, m)
	}
	if len(items) == 0 {
		return MessageSet{}
	}
	sort.Strings(items)
	return MessageSet{items: items}
}

// Union returns a new set holding the messages of s and every other set.
func (s MessageSet) Union(others ...MessageSet) MessageSet {
	merged := s
	for _, o := range others {
		merged = merged.With(o.items...)
	}
	return merged
}

// Items returns a sorted copy of the messages.
func (s MessageSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of messages.
func (s MessageSet) Len() int {
	return len(s.items)
}

// IsEmpty reports whether the set holds no message.
func (s MessageSet) IsEmpty() bool {
	return len(s.items) == 0
}

// Contains reports whether msg is in the set.
func (s MessageSet) Contains(msg string) bool {
	i := sort.SearchStrings(s.items, msg)
	return i < len(s.items) && s.items[i] == msg
}

// MarshalJSON encodes the set as a JSON array.
func (s MessageSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON decodes a JSON array into a set.
func (s *MessageSet) UnmarshalJSON(data []byte) error {
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	*s = NewMessageSet(msgs...)
	return nil
}

// Messages holds the specific (patient-level detail) and general (short,
// reportable) rationale for one outcome bucket.
type Messages struct {
	Specific MessageSet `json:"specific"`
	General  MessageSet `json:"general"`
}

// Union merges message buckets.
func (m Messages) Union(others ...Messages) Messages {
	out := m
	for _, o := range others {
		out.Specific = out.Specific.Union(o.Specific)
		out.General = out.General.Union(o.General)
	}
	return out
}

// IsEmpty reports whether both granularities are empty.
func (m Messages) IsEmpty() bool {
	return m.Specific.IsEmpty() && m.General.IsEmpty()
}

// Evaluation is the immutable outcome of evaluating one criterion against one
// patient record. Buckets other than the one matching Result may still hold
// messages when composite criteria merge several children.
type Evaluation struct {
	Result EvaluationResult `json:"result"`
	// Recoverable marks a FAIL that only excludes this criterion rather than
	// making the enclosing trial or cohort definitively ineligible.
	Recoverable bool `json:"recoverable"`

	Pass         Messages `json:"pass"`
	Warn         Messages `json:"warn"`
	Undetermined Messages `json:"undetermined"`
	Fail         Messages `json:"fail"`
}

// MessagesFor returns the bucket belonging to result. Non-comparable results
// have no bucket and yield empty messages.
func (e Evaluation) MessagesFor(result EvaluationResult) Messages {
	switch result {
	case PASS:
		return e.Pass
	case WARN:
		return e.Warn
	case UNDETERMINED:
		return e.Undetermined
	case FAIL:
		return e.Fail
	default:
		return Messages{}
	}
}

// IsExcluding reports whether e on its own makes the enclosing trial or
// cohort ineligible.
func (e Evaluation) IsExcluding() bool {
	return e.Result == FAIL && !e.Recoverable
}
