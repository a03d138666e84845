package threat

import (
	"fmt"
	"strings"

	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

// Kind names a predicate implementation that ruleset entries refer to.
type Kind string

const (
	// KindVesselTypePrefix trips when statCode5 starts with one of Params.Prefixes.
	KindVesselTypePrefix Kind = "vessel_type_prefix"
	// KindSanctionList trips when any of Params.Lists (all lists if empty) is "True".
	KindSanctionList Kind = "sanction_list"
	// KindUnknownOwner trips when the owner named by Params.Field is blank,
	// ".", or contains "unknown".
	KindUnknownOwner Kind = "unknown_owner"
	// KindFlagIn trips when the flag is one of Params.Flags.
	KindFlagIn Kind = "flag_in"
	// KindOwnerCountryIn trips when any owner's country of registration is
	// one of Params.Countries.
	KindOwnerCountryIn Kind = "owner_country_in"
	// KindManual has no predicate.
	KindManual Kind = "manual"
)

// Owner fields accepted by KindUnknownOwner.
const (
	OwnerRegistered      = "registered_owner"
	OwnerGroupBeneficial = "group_beneficial_owner"
	OwnerOperator        = "operator"
)

// Params carries the kind-specific settings of a ruleset entry.
type Params struct {
	Prefixes  []string `yaml:"prefixes,omitempty"  json:"prefixes,omitempty"`
	Lists     []string `yaml:"lists,omitempty"     json:"lists,omitempty"`
	Field     string   `yaml:"field,omitempty"     json:"field,omitempty"`
	Flags     []string `yaml:"flags,omitempty"     json:"flags,omitempty"`
	Countries []string `yaml:"countries,omitempty" json:"countries,omitempty"`
}

type predicateFactory func(p Params) (Predicate, error)

// kinds is the registry of predicate implementations. KindManual maps to nil.
var kinds = map[Kind]predicateFactory{
	KindVesselTypePrefix: newVesselTypePrefix,
	KindSanctionList:     newSanctionList,
	KindUnknownOwner:     newUnknownOwner,
	KindFlagIn:           newFlagIn,
	KindOwnerCountryIn:   newOwnerCountryIn,
	KindManual:           nil,
}

// Kinds returns every registered kind name.
func Kinds() []Kind {
	return []Kind{KindVesselTypePrefix, KindSanctionList, KindUnknownOwner, KindFlagIn, KindOwnerCountryIn, KindManual}
}

func buildPredicate(kind Kind, p Params) (Predicate, error) {
	factory, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	if factory == nil {
		return nil, nil
	}
	return factory(p)
}

func newVesselTypePrefix(p Params) (Predicate, error) {
	if len(p.Prefixes) == 0 {
		return nil, fmt.Errorf("%s requires at least one prefix", KindVesselTypePrefix)
	}
	prefixes := make([]string, 0, len(p.Prefixes))
	for _, pre := range p.Prefixes {
		pre = strings.ToUpper(strings.TrimSpace(pre))
		if pre == "" {
			return nil, fmt.Errorf("%s: empty prefix", KindVesselTypePrefix)
		}
		prefixes = append(prefixes, pre)
	}
	return func(v *model.Vessel) bool {
		code := strings.ToUpper(strings.TrimSpace(v.StatCode5))
		for _, pre := range prefixes {
			if strings.HasPrefix(code, pre) {
				return true
			}
		}
		return false
	}, nil
}

func newSanctionList(p Params) (Predicate, error) {
	lists := model.AllSanctionLists
	if len(p.Lists) > 0 {
		lists = make([]model.SanctionList, 0, len(p.Lists))
		for _, name := range p.Lists {
			l := model.SanctionList(strings.ToLower(strings.TrimSpace(name)))
			if !l.IsValid() {
				return nil, fmt.Errorf("%s: unknown list %q", KindSanctionList, name)
			}
			lists = append(lists, l)
		}
	}
	return func(v *model.Vessel) bool {
		for _, l := range lists {
			if v.Sanction(l).IsListed() {
				return true
			}
		}
		return false
	}, nil
}

// OwnerUnknown reports whether an owner value is missing or a placeholder.
func OwnerUnknown(owner string) bool {
	o := strings.ToLower(strings.TrimSpace(owner))
	return o == "" || o == "." || strings.Contains(o, "unknown")
}

func newUnknownOwner(p Params) (Predicate, error) {
	var get func(v *model.Vessel) string
	switch p.Field {
	case "", OwnerRegistered:
		get = func(v *model.Vessel) string { return v.RegisteredOwner }
	case OwnerGroupBeneficial:
		get = func(v *model.Vessel) string { return v.GroupBeneficialOwner }
	case OwnerOperator:
		get = func(v *model.Vessel) string { return v.Operator }
	default:
		return nil, fmt.Errorf("%s: unknown owner field %q", KindUnknownOwner, p.Field)
	}
	return func(v *model.Vessel) bool { return OwnerUnknown(get(v)) }, nil
}

func newFlagIn(p Params) (Predicate, error) {
	set, err := foldSet(KindFlagIn, p.Flags)
	if err != nil {
		return nil, err
	}
	return func(v *model.Vessel) bool {
		_, ok := set[fold(v.FlagName)]
		return ok
	}, nil
}

func newOwnerCountryIn(p Params) (Predicate, error) {
	set, err := foldSet(KindOwnerCountryIn, p.Countries)
	if err != nil {
		return nil, err
	}
	return func(v *model.Vessel) bool {
		for _, c := range []string{
			v.RegisteredOwnerCountryOfRegistration,
			v.GroupBeneficialOwnerCountryOfRegistration,
			v.OperatorCountryOfRegistration,
		} {
			if _, ok := set[fold(c)]; ok {
				return true
			}
		}
		return false
	}, nil
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func foldSet(kind Kind, values []string) (map[string]struct{}, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s requires at least one value", kind)
	}
	set := make(map[string]struct{}, len(values))
	for _, s := range values {
		f := fold(s)
		if f == "" {
			return nil, fmt.Errorf("%s: empty value", kind)
		}
		set[f] = struct{}{}
	}
	return set, nil
}
