package hotelRepository

import (
	"HotelClaimBot/pkg/fuzzy"
	"strings"
)

type columnRole int

const (
	roleField columnRole = iota
	roleName
	roleAddress
	roleCreatedAt
	roleAnswers
)

var headerAliases = map[string]columnRole{
	"hotel name":       roleName,
	"hotelname":        roleName,
	"hotel":            roleName,
	"name en":          roleName,
	"hotel name en":    roleName,
	"სასტუმროს სახელი": roleName,
	"სასტუმრო":         roleName,

	"address":    roleAddress,
	"address ka": roleAddress,
	"მისამართი":  roleAddress,

	"created at": roleCreatedAt,
	"timestamp":  roleCreatedAt,
	"date":       roleCreatedAt,
	"თარიღი":     roleCreatedAt,

	"answers": roleAnswers,
}

var fieldAliases = map[string]string{
	"კომენტარი":      "comment",
	"matched comment": "comment",
	"სტატუსი":        "status",
	"agent username": "agent",
	"აგენტი":         "agent",
	"საკონტაქტო":     "contact",
}

type column struct {
	role  columnRole
	field string
}

type sheetLayout struct {
	columns []column
	name    int
	address int
	created int
	answers int
}

// parseHeader maps raw header cells to column roles. Quotes, stray
// punctuation and case in the sheet header are ignored.
func parseHeader(raw []string) sheetLayout {
	layout := sheetLayout{name: -1, address: -1, created: -1, answers: -1}

	for i, h := range raw {
		key := fuzzy.Normalize(h)
		role, known := headerAliases[key]
		if !known {
			role = roleField
		}

		col := column{role: role}
		switch role {
		case roleName:
			if layout.name >= 0 {
				col = column{role: roleField, field: fieldKey(key)}
			} else {
				layout.name = i
			}
		case roleAddress:
			if layout.address >= 0 {
				col = column{role: roleField, field: fieldKey(key)}
			} else {
				layout.address = i
			}
		case roleCreatedAt:
			if layout.created >= 0 {
				col = column{role: roleField, field: fieldKey(key)}
			} else {
				layout.created = i
			}
		case roleAnswers:
			layout.answers = i
		default:
			col.field = fieldKey(key)
		}
		layout.columns = append(layout.columns, col)
	}

	return layout
}

func (l sheetLayout) valid() bool {
	return l.name >= 0 && l.address >= 0
}

func fieldKey(normalized string) string {
	if alias, ok := fieldAliases[normalized]; ok {
		return alias
	}
	return strings.ReplaceAll(normalized, " ", "_")
}

func defaultHeader() []string {
	return []string{"created_at", "hotel name", "address", "agent", "decision", "answers"}
}
