package domain

import "encoding/json"

// RecipientKind discriminates the variants a recipient reference can take.
type RecipientKind string

const (
	Person     RecipientKind = "person"
	Collection RecipientKind = "collection"
	Group      RecipientKind = "group"
	Public     RecipientKind = "public"
)

// Recipient is a reference to one addressed party of an activity. It is
// derived from the activity's audience fields and never stored on its own.
type Recipient struct {
	Kind RecipientKind `json:"objectType"`
	// ID is a local actor id, an acct: address, or the public collection URI.
	ID string `json:"id"`
}

func (r Recipient) IsPublic() bool {
	return r.Kind == Public || r.ID == PublicCollection
}

// Activity is a verb + actor + object record with an addressed audience.
// It is immutable once handed to the distributor.
type Activity struct {
	ID     string          `json:"id"`
	Actor  Recipient       `json:"actor"`
	Verb   string          `json:"verb"`
	Object json.RawMessage `json:"object,omitempty"`
	Target json.RawMessage `json:"target,omitempty"`
	To     []Recipient     `json:"to,omitempty"`
	CC     []Recipient     `json:"cc,omitempty"`
	BTo    []Recipient     `json:"bto,omitempty"`
	BCC    []Recipient     `json:"bcc,omitempty"`
}

// Audience returns every recipient reference of the activity, in field order.
// bto and bcc address recipients like to and cc do; they only differ in not
// being echoed back in delivered copies.
func (a *Activity) Audience() []Recipient {
	out := make([]Recipient, 0, len(a.To)+len(a.CC)+len(a.BTo)+len(a.BCC))
	out = append(out, a.To...)
	out = append(out, a.CC...)
	out = append(out, a.BTo...)
	out = append(out, a.BCC...)
	return out
}

// PublicCopy serializes the activity as delivered to recipients, with the
// blind audience fields stripped.
func (a *Activity) PublicCopy() ([]byte, error) {
	copy := *a
	copy.BTo = nil
	copy.BCC = nil
	return json.Marshal(&copy)
}
