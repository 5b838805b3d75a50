package reports

import "strings"

// Bucket groups raw statuses for counting and tab filtering.
type Bucket string

const (
	BucketNone     Bucket = ""
	BucketApproved Bucket = "approved"
	BucketRejected Bucket = "rejected"
	BucketPending  Bucket = "pending"
)

// TabAll passes every row through the status filter.
const TabAll = "all"

type bucketRules struct {
	approved []string
	rejected []string
	pending  []string
}

var bucketTable = map[Kind]bucketRules{
	KindLoad: {
		approved: []string{"approved", "accepted", "Delivered"},
		rejected: []string{"rejected", "Cancelled"},
		pending:  []string{"pending", "open", "In Transit"},
	},
	KindDeliveryOrder: {
		approved: []string{"Delivered", "completed"},
		rejected: []string{"Cancelled", "rejected"},
		pending:  []string{"pending", "open", "In Transit"},
	},
	KindCall: {
		approved: []string{"answered", "completed"},
		rejected: []string{"missed", "rejected", "incomplete"},
		pending:  []string{"pending"},
	},
	KindTargetCompletion: {
		approved: []string{"completed"},
		rejected: []string{"incomplete", "missed"},
		pending:  []string{"pending", "in progress"},
	},
	KindFollowUp: {
		approved: []string{"completed", "closed"},
		rejected: []string{"Cancelled", "missed"},
		pending:  []string{"pending", "open"},
	},
	KindCustomerAdded: {
		approved: []string{"active", "approved"},
		rejected: []string{"rejected", "inactive"},
		pending:  []string{"pending"},
	},
}

// BucketOf returns the bucket status falls in for kind, or BucketNone.
func BucketOf(kind Kind, status string) Bucket {
	rules, ok := bucketTable[kind]
	if !ok {
		return BucketNone
	}
	status = strings.TrimSpace(status)
	switch {
	case containsFold(rules.approved, status):
		return BucketApproved
	case containsFold(rules.rejected, status):
		return BucketRejected
	case containsFold(rules.pending, status):
		return BucketPending
	}
	return BucketNone
}

// ValidTab reports whether tab is "all" or a bucket name.
func ValidTab(tab string) bool {
	switch Bucket(strings.ToLower(strings.TrimSpace(tab))) {
	case "", Bucket(TabAll), BucketApproved, BucketRejected, BucketPending:
		return true
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
