package categorytree

import (
	"strings"
	"unicode"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a top-level balance-sheet classification.
type Category string

const (
	CategoryAssets      Category = "Assets"
	CategoryLiabilities Category = "Liabilities"
	CategoryCapital     Category = "Capital"
	CategoryIncome      Category = "Income"
	CategoryExpenses    Category = "Expenses"
)

// Categories lists the classifications in display order.
var Categories = []Category{CategoryAssets, CategoryLiabilities, CategoryCapital, CategoryIncome, CategoryExpenses}

// AccountsKey is the reserved key holding leaf account arrays.
const AccountsKey = "accounts"

// AccountRow is one flattened leaf account.
type AccountRow struct {
	AccountName     string   `json:"accountName"`
	Balance         float64  `json:"balance"`
	SubCategoryPath string   `json:"subCategoryPath"`
	Category        Category `json:"category,omitempty"`
}

// NodeKind classifies a node for traversal.
type NodeKind int

const (
	KindInvalid NodeKind = iota
	KindArray
	KindAccountsHolder
	KindCategoryGroup
	KindLeaf
)

func (k NodeKind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindAccountsHolder:
		return "accounts_holder"
	case KindCategoryGroup:
		return "category_group"
	case KindLeaf:
		return "leaf"
	default:
		return "invalid"
	}
}

// KindOf classifies a node reached through an object key.
func KindOf(n *Node) NodeKind {
	if n == nil {
		return KindInvalid
	}
	switch n.Type {
	case TypeArray:
		return KindArray
	case TypeObject:
		if accounts := n.Get(AccountsKey); accounts != nil && accounts.Type == TypeArray {
			return KindAccountsHolder
		}
		return KindCategoryGroup
	default:
		return KindInvalid
	}
}

// ItemKindOf classifies an element of an account array.
func ItemKindOf(n *Node) NodeKind {
	if n != nil && n.Type == TypeObject {
		return KindLeaf
	}
	return KindInvalid
}

// Visitor receives every leaf with the path label in effect.
type Visitor func(leaf *Node, path string)

// Walk visits the leaves under node in key enumeration order.
func Walk(node *Node, path string, visit Visitor) {
	switch KindOf(node) {
	case KindArray:
		for _, item := range node.Items {
			if ItemKindOf(item) == KindLeaf {
				visit(item, path)
			}
		}
	case KindAccountsHolder, KindCategoryGroup:
		for _, key := range node.Keys {
			child := node.Fields[key]
			if child == nil {
				continue
			}
			switch {
			case key == AccountsKey && child.Type == TypeArray:
				Walk(child, path, visit)
			case child.Type == TypeObject:
				Walk(child, Humanize(key), visit)
			}
		}
	}
}

// FlattenNode collects the leaves under node as rows tagged with category.
// With no path and no category the node is taken as a tree root and
// handled exactly like Flatten.
func FlattenNode(node *Node, path string, category Category) []AccountRow {
	if path == "" && category == "" && node != nil && node.Type == TypeObject {
		return Flatten(node)
	}
	return flattenNode(node, path, category)
}

func flattenNode(node *Node, path string, category Category) []AccountRow {
	var rows []AccountRow
	Walk(node, path, func(leaf *Node, p string) {
		rows = append(rows, leafRow(leaf, p, category))
	})
	return rows
}

// Flatten is the entry point for a whole balance-sheet tree. Recognised
// top-level keys set the category and start with an empty path.
func Flatten(root *Node) []AccountRow {
	if root == nil || root.Type != TypeObject {
		return flattenNode(root, "", "")
	}
	var rows []AccountRow
	for _, key := range root.Keys {
		child := root.Fields[key]
		if cat, ok := CategoryForKey(key); ok {
			rows = append(rows, flattenNode(child, "", cat)...)
			continue
		}
		switch {
		case key == AccountsKey && child != nil && child.Type == TypeArray:
			rows = append(rows, flattenNode(child, "", "")...)
		case child != nil && child.Type == TypeObject:
			rows = append(rows, flattenNode(child, Humanize(key), "")...)
		}
	}
	return rows
}

// CategoryForKey maps a top-level key onto its category.
func CategoryForKey(key string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "assets", "asset":
		return CategoryAssets, true
	case "liabilities", "liability":
		return CategoryLiabilities, true
	case "capital", "equity":
		return CategoryCapital, true
	case "income", "revenue":
		return CategoryIncome, true
	case "expenses", "expense":
		return CategoryExpenses, true
	}
	return "", false
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// Humanize turns a camelCase key into a label: currentLiabilities becomes
// "Current Liabilities".
func Humanize(key string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(key))
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && unicode.IsUpper(r) && runes[i-1] != ' ' && runes[i-1] != '_' && runes[i-1] != '-':
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return titleCaser.String(strings.Join(strings.Fields(b.String()), " "))
}

var (
	namePaths    = []string{"accountName", "name", "ledgerName", "account"}
	balancePaths = []string{"balance", "closingBalance", "amount"}
)

func leafRow(leaf *Node, path string, category Category) AccountRow {
	row := AccountRow{AccountName: "N/A", SubCategoryPath: path, Category: category}
	for _, key := range namePaths {
		if v := leaf.Get(key); v != nil && v.Type == TypeScalar && v.Value != nil {
			if s := strings.TrimSpace(cast.ToString(v.Value)); s != "" {
				row.AccountName = s
				break
			}
		}
	}
	for _, key := range balancePaths {
		v := leaf.Get(key)
		if v == nil || v.Type != TypeScalar || v.Value == nil {
			continue
		}
		if f, ok := toAmount(v.Value); ok {
			row.Balance = f
			break
		}
	}
	return row
}

func toAmount(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			return 0, false
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}
