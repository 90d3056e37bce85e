package analysis

import "strings"

// Role is a semantic column category resolved from column names
type Role string

const (
	RoleSales    Role = "Sales"
	RoleCost     Role = "Cost"
	RoleProfit   Role = "Profit"
	RoleQuantity Role = "Quantity"
	RoleProduct  Role = "Product"
	RoleCustomer Role = "Customer"
	RoleCategory Role = "Category"
	RoleRegion   Role = "Region"
	RoleDate     Role = "Date"
)

// AllRoles lists every role in registration order
var AllRoles = []Role{
	RoleSales, RoleCost, RoleProfit, RoleQuantity, RoleProduct,
	RoleCustomer, RoleCategory, RoleRegion, RoleDate,
}

// roleKeywords holds the lowercase substrings for each role, highest
// priority first.
var roleKeywords = map[Role][]string{
	RoleSales:    {"sales", "revenue"},
	RoleCost:     {"cost"},
	RoleProfit:   {"profit"},
	RoleQuantity: {"quantity", "qty"},
	RoleProduct:  {"product", "item"},
	RoleCustomer: {"customer", "client"},
	RoleCategory: {"category"},
	RoleRegion:   {"region", "location"},
	RoleDate:     {"date"},
}

// Keywords returns a copy of the keyword list for a role
func Keywords(role Role) []string {
	kw := roleKeywords[role]
	out := make([]string, len(kw))
	copy(out, kw)
	return out
}

// Resolve maps a role to a column name. Keywords are tried in priority
// order; for each keyword the first column in table order whose lowercased
// name contains it wins.
func Resolve(columns []string, role Role) (string, bool) {
	lowered := make([]string, len(columns))
	for i, c := range columns {
		lowered[i] = strings.ToLower(c)
	}
	for _, kw := range roleKeywords[role] {
		for i, name := range lowered {
			if strings.Contains(name, kw) {
				return columns[i], true
			}
		}
	}
	return "", false
}

// Roles is the resolution of every role against one column list. It is a
// snapshot: resolve again after columns are added or removed.
type Roles map[Role]string

// ResolveAll resolves every role against columns
func ResolveAll(columns []string) Roles {
	roles := make(Roles, len(AllRoles))
	for _, role := range AllRoles {
		if name, ok := Resolve(columns, role); ok {
			roles[role] = name
		}
	}
	return roles
}

// Get returns the column for role and whether it resolved
func (r Roles) Get(role Role) (string, bool) {
	name, ok := r[role]
	return name, ok
}

// Missing returns the roles from want that did not resolve, as names
func (r Roles) Missing(want ...Role) []string {
	var missing []string
	for _, role := range want {
		if _, ok := r[role]; !ok {
			missing = append(missing, string(role))
		}
	}
	return missing
}
