package usecase

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasGroup binds one target patient field to the spreadsheet header
// spellings that should map to it. Order matters twice: groups are
// tried in slice order (first match wins for ambiguous headers), and
// aliases within a group are tried in order.
type AliasGroup struct {
	Field   string   `yaml:"field"`
	Aliases []string `yaml:"aliases"`
}

// defaultAliasTable covers the header spellings seen in real clinic
// exports. Overridable with a YAML file (PATIENT_ALIAS_FILE).
var defaultAliasTable = []AliasGroup{
	{Field: "firstName", Aliases: []string{"first name", "firstname", "fname", "given name", "patient name", "name"}},
	{Field: "lastName", Aliases: []string{"last name", "lastname", "surname", "family name"}},
	{Field: "phoneNumber", Aliases: []string{"phone", "mobile", "contact no", "contact", "phone number", "cell"}},
	{Field: "email", Aliases: []string{"email", "e-mail", "mail"}},
	{Field: "dateOfBirth", Aliases: []string{"dob", "date of birth", "birth date", "birthdate"}},
	{Field: "gender", Aliases: []string{"gender", "sex"}},
	{Field: "bloodType", Aliases: []string{"blood group", "blood type", "blood"}},
	{Field: "address", Aliases: []string{"address", "location"}},
}

// LoadAliasTable reads an alias table from a YAML file. An empty path
// returns the built-in defaults.
func LoadAliasTable(path string) ([]AliasGroup, error) {
	if path == "" {
		return defaultAliasTable, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	var groups []AliasGroup
	if err := yaml.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("alias file %s defines no groups", path)
	}
	return groups, nil
}

// SuggestColumnMap maps spreadsheet headers to target patient fields.
// An exact alias match over normalized (lowercased, trimmed) text is
// tried first, then bidirectional substring containment; within a
// pass, first group wins. Exact-first keeps "surname" away from the
// broad "name" alias.
func SuggestColumnMap(headers []string, table []AliasGroup) map[string]string {
	mapping := make(map[string]string, len(headers))
	for _, header := range headers {
		normalized := strings.ToLower(strings.TrimSpace(header))
		if normalized == "" {
			continue
		}
		if field := matchAlias(normalized, table); field != "" {
			mapping[header] = field
		}
	}
	return mapping
}

func matchAlias(normalized string, table []AliasGroup) string {
	for _, group := range table {
		for _, alias := range group.Aliases {
			if normalized == alias {
				return group.Field
			}
		}
	}
	for _, group := range table {
		for _, alias := range group.Aliases {
			if strings.Contains(normalized, alias) || strings.Contains(alias, normalized) {
				return group.Field
			}
		}
	}
	return ""
}
