// Package model holds the vessel registry and arrival feed records shared by
// the reconciliation, scoring and storage layers.
package model

import (
	"strconv"
	"strings"
)

// SanctionFlag is a registry sanction-list membership field. The registry
// exports these as the strings "True" / "False"; anything else is unlisted.
type SanctionFlag string

const (
	SanctionListed   SanctionFlag = "True"
	SanctionUnlisted SanctionFlag = "False"
)

// IsListed reports whether the flag marks membership (case-insensitive "true").
func (f SanctionFlag) IsListed() bool {
	return strings.EqualFold(strings.TrimSpace(string(f)), "true")
}

// SanctionList names one of the five sanction lists carried on a registry record.
type SanctionList string

const (
	SanctionListEU            SanctionList = "eu"
	SanctionListOFAC          SanctionList = "ofac"
	SanctionListOFACNonSDN    SanctionList = "ofac_non_sdn"
	SanctionListUN            SanctionList = "un"
	SanctionListUSTreasuryAdv SanctionList = "us_treasury_ofac_advisory"
)

// AllSanctionLists is every list in registry column order.
var AllSanctionLists = []SanctionList{
	SanctionListEU,
	SanctionListOFACNonSDN,
	SanctionListOFAC,
	SanctionListUN,
	SanctionListUSTreasuryAdv,
}

// IsValid reports whether l is a known list.
func (l SanctionList) IsValid() bool {
	for _, known := range AllSanctionLists {
		if l == known {
			return true
		}
	}
	return false
}

// Vessel is an authoritative registry record for a single hull, keyed by
// its IMO / LR number. The scoring and reconciliation code only reads it.
type Vessel struct {
	IMO            string `json:"ihslRorImoShipNo"  db:"ihslr_or_imo_ship_no"`
	ShipName       string `json:"shipName"          db:"ship_name"`
	ExName         string `json:"exName"            db:"ex_name"`
	FlagName       string `json:"flagName"          db:"flag_name"`
	CallSign       string `json:"callSign"          db:"call_sign"`
	GrossTonnage   int    `json:"grossTonnage"      db:"gross_tonnage"`
	StatCode5      string `json:"statCode5"         db:"stat_code5"`
	ShiptypeLevel5 string `json:"shiptypeLevel5"    db:"shiptype_level5"`

	OnEUSanctionList             SanctionFlag `json:"shiponEuSanctionList"             db:"shipon_eu_sanction_list"`
	OnOFACNonSDNSanctionList     SanctionFlag `json:"shiponOfacNonSdnSanctionList"     db:"shipon_ofac_non_sdn_sanction_list"`
	OnOFACSanctionList           SanctionFlag `json:"shiponOfacSanctionList"           db:"shipon_ofac_sanction_list"`
	OnUNSanctionList             SanctionFlag `json:"shiponUnSanctionList"             db:"shipon_un_sanction_list"`
	OnUSTreasuryOFACAdvisoryList SanctionFlag `json:"shiponUsTreasuryOfacAdvisoryList" db:"shipon_us_treasury_ofac_advisory_list"`

	GroupBeneficialOwner                      string `json:"groupBeneficialOwner"                      db:"group_beneficial_owner"`
	GroupBeneficialOwnerCountryOfRegistration string `json:"groupBeneficialOwnerCountryOfRegistration" db:"group_beneficial_owner_country_of_registration"`
	RegisteredOwner                           string `json:"registeredOwner"                           db:"registered_owner"`
	RegisteredOwnerCountryOfRegistration      string `json:"registeredOwnerCountryOfRegistration"      db:"registered_owner_country_of_registration"`
	Operator                                  string `json:"operator"                                  db:"operator"`
	OperatorCountryOfRegistration             string `json:"operatorCountryOfRegistration"             db:"operator_country_of_registration"`
}

// Sanction returns the membership flag for list l. Unknown lists are unlisted.
func (v *Vessel) Sanction(l SanctionList) SanctionFlag {
	switch l {
	case SanctionListEU:
		return v.OnEUSanctionList
	case SanctionListOFACNonSDN:
		return v.OnOFACNonSDNSanctionList
	case SanctionListOFAC:
		return v.OnOFACSanctionList
	case SanctionListUN:
		return v.OnUNSanctionList
	case SanctionListUSTreasuryAdv:
		return v.OnUSTreasuryOFACAdvisoryList
	}
	return ""
}

// Field returns the value of the named field, addressed by its JSON name.
// It backs rule description templates; ok is false for unknown names.
func (v *Vessel) Field(name string) (value string, ok bool) {
	switch name {
	case "ihslRorImoShipNo":
		return v.IMO, true
	case "shipName":
		return v.ShipName, true
	case "exName":
		return v.ExName, true
	case "flagName":
		return v.FlagName, true
	case "callSign":
		return v.CallSign, true
	case "grossTonnage":
		return strconv.Itoa(v.GrossTonnage), true
	case "statCode5":
		return v.StatCode5, true
	case "shiptypeLevel5":
		return v.ShiptypeLevel5, true
	case "shiponEuSanctionList":
		return string(v.OnEUSanctionList), true
	case "shiponOfacNonSdnSanctionList":
		return string(v.OnOFACNonSDNSanctionList), true
	case "shiponOfacSanctionList":
		return string(v.OnOFACSanctionList), true
	case "shiponUnSanctionList":
		return string(v.OnUNSanctionList), true
	case "shiponUsTreasuryOfacAdvisoryList":
		return string(v.OnUSTreasuryOFACAdvisoryList), true
	case "groupBeneficialOwner":
		return v.GroupBeneficialOwner, true
	case "groupBeneficialOwnerCountryOfRegistration":
		return v.GroupBeneficialOwnerCountryOfRegistration, true
	case "registeredOwner":
		return v.RegisteredOwner, true
	case "registeredOwnerCountryOfRegistration":
		return v.RegisteredOwnerCountryOfRegistration, true
	case "operator":
		return v.Operator, true
	case "operatorCountryOfRegistration":
		return v.OperatorCountryOfRegistration, true
	}
	return "", false
}
