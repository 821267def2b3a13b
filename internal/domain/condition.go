package domain

import "strings"

type Condition string

func (c Condition) String() string {
	return string(c)
}

const (
	ConditionNew         Condition = "New"
	ConditionUsed        Condition = "Used"
	ConditionDamaged     Condition = "Damaged"
	ConditionRefurbished Condition = "Refurbished"
	ConditionRegenerated Condition = "Regenerated"
	ConditionOriginal    Condition = "Original"
	ConditionReplacement Condition = "Replacement"
	ConditionUnknown     Condition = "Unknown"
)

// conditionVocabulary maps schema.org item conditions and the source site's
// Polish vocabulary to a Condition. Keys are lower case.
var conditionVocabulary = map[string]Condition{
	"newcondition":         ConditionNew,
	"usedcondition":        ConditionUsed,
	"damagedcondition":     ConditionDamaged,
	"refurbishedcondition": ConditionRefurbished,

	"new":         ConditionNew,
	"used":        ConditionUsed,
	"damaged":     ConditionDamaged,
	"refurbished": ConditionRefurbished,
	"regenerated": ConditionRegenerated,
	"original":    ConditionOriginal,
	"replacement": ConditionReplacement,

	"nowy":                       ConditionNew,
	"nowa":                       ConditionNew,
	"nowe":                       ConditionNew,
	"używany":                    ConditionUsed,
	"używana":                    ConditionUsed,
	"używane":                    ConditionUsed,
	"uszkodzony":                 ConditionDamaged,
	"uszkodzona":                 ConditionDamaged,
	"uszkodzone":                 ConditionDamaged,
	"powystawowy":                ConditionRefurbished,
	"odnowiony":                  ConditionRefurbished,
	"odnowiona":                  ConditionRefurbished,
	"regenerowany":               ConditionRegenerated,
	"regenerowana":               ConditionRegenerated,
	"regenerowane":               ConditionRegenerated,
	"oryginał":                   ConditionOriginal,
	"oryginalny":                 ConditionOriginal,
	"o - oryginał":               ConditionOriginal,
	"zamiennik":                  ConditionReplacement,
	"q - zamiennik":              ConditionReplacement,
	"p - zamiennik":              ConditionReplacement,
	"zamiennik wysokiej jakości": ConditionReplacement,
}

// ParseCondition translates a source condition label to a Condition.
// Schema.org URLs such as "https://schema.org/NewCondition" are accepted.
func ParseCondition(raw string) Condition {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ConditionUnknown
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if c, ok := conditionVocabulary[s]; ok {
		return c
	}
	return ConditionUnknown
}
