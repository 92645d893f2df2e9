// Package classifier assigns a semantic role to each line of resume text.
package classifier

// Role is the semantic class of a resume line.
type Role int

const (
	RoleNone Role = iota
	RoleName
	RoleContactLine
	RoleSectionHeader
	RoleInstitutionRow
	RoleBulletEntry
	RoleLabelValue
	RolePlainText
)

var roleNames = map[Role]string{
	RoleNone:           "None",
	RoleName:           "Name",
	RoleContactLine:    "ContactLine",
	RoleSectionHeader:  "SectionHeader",
	RoleInstitutionRow: "InstitutionRow",
	RoleBulletEntry:    "BulletEntry",
	RoleLabelValue:     "LabelValue",
	RolePlainText:      "PlainText",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText lets roles appear by name in JSON output.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Roles returns the role of every line, in order.
func Roles(lines []Line) []Role {
	roles := make([]Role, len(lines))
	for i, line := range lines {
		roles[i] = line.Role
	}
	return roles
}
