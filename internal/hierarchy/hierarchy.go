// Package hierarchy enforces the placement rules of the three-level supply chain.
//
// Level 0 holds factories only. Retail networks and sole proprietors sit on
// level 1 or 2. A buyer sits exactly one level below its supplier, and level 2
// participants never supply anyone. Rules are checked in a fixed order and the
// first violation wins.
package hierarchy

import (
	"github.com/suteetoe/tradenet/internal/model"
)

// Rule identifies a single placement rule
type Rule string

const (
	RuleFactoryLevel          Rule = "factory_level"
	RuleRetailLevel           Rule = "retail_level"
	RuleSupplierLevelRequired Rule = "supplier_level_required"
	RuleSelfSupply            Rule = "self_supply"
	RuleSupplierLevelZero     Rule = "supplier_level_0"
	RuleSupplierLevelOne      Rule = "supplier_level_1"
	RuleSupplierLevelTwo      Rule = "supplier_level_2"
	RuleBuyersConflict        Rule = "buyers_conflict"
)

var messages = map[Rule]string{
	RuleFactoryLevel:          "Завод всегда находится на нулевом(0) уровне.",
	RuleRetailLevel:           "'Розничная сеть' и 'ИП' могут быть только на 1-м или 2-м уровне.",
	RuleSupplierLevelRequired: "Если есть поставщик то Ваш уровень должен быть '1' или '2'.",
	RuleSelfSupply:            "Покупатель и поставщик не могут быть одним лицом.",
	RuleSupplierLevelZero:     "Вы выбрали поставщика с уровнем '0', Ваш уровень должен быть '1'.",
	RuleSupplierLevelOne:      "Вы выбрали поставщика с уровнем '1', Ваш уровень должен быть '2'.",
	RuleSupplierLevelTwo:      "Поставщик с уровнем '2' не осуществляет поставки.",
	RuleBuyersConflict:        "Уровень участника не соответствует уровню его покупателей.",
}

// Message returns the client-facing text of a rule
func (r Rule) Message() string {
	return messages[r]
}

// Violation is returned when a candidate breaks a rule
type Violation struct {
	Rule Rule
}

func (v *Violation) Error() string {
	return v.Rule.Message()
}

// Candidate is the participant state being created or updated.
// ID is zero for records that do not exist yet.
type Candidate struct {
	ID       uint
	Email    string
	UnitName model.UnitName
	Level    *model.Level
}

// FromParticipant builds a candidate from a participant record
func FromParticipant(p *model.Participant) Candidate {
	return Candidate{
		ID:       p.ID,
		Email:    p.Email,
		UnitName: p.UnitName,
		Level:    p.Level,
	}
}

// Validate checks the candidate against its supplier, which is nil when none is set
func Validate(c Candidate, supplier *model.Participant) error {
	level := levelOf(c.Level)

	switch c.UnitName {
	case model.UnitFactory:
		if level != model.LevelZero {
			return violation(RuleFactoryLevel)
		}
	case model.UnitRetailNetwork, model.UnitSoleProprietor:
		if !buyerLevel(level) {
			return violation(RuleRetailLevel)
		}
	}

	if supplier == nil {
		return nil
	}

	if !buyerLevel(level) {
		return violation(RuleSupplierLevelRequired)
	}
	if supplier.Email == c.Email || (c.ID != 0 && supplier.ID == c.ID) {
		return violation(RuleSelfSupply)
	}

	// an unplaced supplier carries no level constraint
	switch supplier.LevelValue() {
	case model.LevelZero:
		if level != model.LevelOne {
			return violation(RuleSupplierLevelZero)
		}
	case model.LevelOne:
		if level != model.LevelTwo {
			return violation(RuleSupplierLevelOne)
		}
	case model.LevelTwo:
		return violation(RuleSupplierLevelTwo)
	}

	return nil
}

// ValidateBuyers checks that every current buyer of supplier still satisfies
// the rules once supplier takes its new state
func ValidateBuyers(supplier *model.Participant, buyers []model.Participant) error {
	for i := range buyers {
		if err := Validate(FromParticipant(&buyers[i]), supplier); err != nil {
			return violation(RuleBuyersConflict)
		}
	}
	return nil
}

func violation(r Rule) error {
	return &Violation{Rule: r}
}

func levelOf(l *model.Level) model.Level {
	if l == nil {
		return ""
	}
	return *l
}

func buyerLevel(l model.Level) bool {
	return l == model.LevelOne || l == model.LevelTwo
}
