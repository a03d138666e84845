package client

import "time"

// Vessel is a vessel registry record.
type Vessel struct {
	IMO            string `json:"ihslRorImoShipNo"`
	ShipName       string `json:"shipName"`
	ExName         string `json:"exName"`
	FlagName       string `json:"flagName"`
	CallSign       string `json:"callSign"`
	GrossTonnage   int    `json:"grossTonnage"`
	StatCode5      string `json:"statCode5"`
	ShiptypeLevel5 string `json:"shiptypeLevel5"`

	OnEUSanctionList             string `json:"shiponEuSanctionList"`
	OnOFACNonSDNSanctionList     string `json:"shiponOfacNonSdnSanctionList"`
	OnOFACSanctionList           string `json:"shiponOfacSanctionList"`
	OnUNSanctionList             string `json:"shiponUnSanctionList"`
	OnUSTreasuryOFACAdvisoryList string `json:"shiponUsTreasuryOfacAdvisoryList"`

	GroupBeneficialOwner                      string `json:"groupBeneficialOwner"`
	GroupBeneficialOwnerCountryOfRegistration string `json:"groupBeneficialOwnerCountryOfRegistration"`
	RegisteredOwner                           string `json:"registeredOwner"`
	RegisteredOwnerCountryOfRegistration      string `json:"registeredOwnerCountryOfRegistration"`
	Operator                                  string `json:"operator"`
	OperatorCountryOfRegistration             string `json:"operatorCountryOfRegistration"`
}

// Arrival is a port-authority feed record.
type Arrival struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	VesselName      string     `json:"vesselName"`
	Callsign        string     `json:"callsign"`
	IMO             string     `json:"imo"`
	Flag            string     `json:"flag"`
	LocationFrom    string     `json:"locationFrom"`
	LocationTo      string     `json:"locationTo"`
	DueToArriveTime *time.Time `json:"dueToArriveTime,omitempty"`
	ArrivedTime     *time.Time `json:"arrivedTime,omitempty"`
}

// CheckedRule is one evaluated rule of a score.
type CheckedRule struct {
	Name        string `json:"name"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
	Tripped     bool   `json:"tripped"`
}

// Rule is a manual rule an analyst evaluates by hand.
type Rule struct {
	Name        string `json:"name"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
}

// ScoreResult is a threat score.
type ScoreResult struct {
	Score        int           `json:"score"`
	Level        int           `json:"level"`
	CheckedRules []CheckedRule `json:"checkedRules"`
	ManualRules  []Rule        `json:"manualRules"`
	Warnings     []string      `json:"warnings,omitempty"`

	// LedgerIndex is the server ledger entry recording this score, or -1
	// when the server did not record it. Set by Score only.
	LedgerIndex int `json:"-"`
}

// Assessment is an arrival reconciled with the registry and scored.
type Assessment struct {
	VesselDetails        *Vessel     `json:"vesselDetails"`
	VesselArrivalDetails *Arrival    `json:"vesselArrivalDetails"`
	Resolution           string      `json:"resolution"`
	RegistryCandidate    *Vessel     `json:"registryCandidate,omitempty"`
	Score                ScoreResult `json:"score"`
}

// LedgerEntry is one link of the server's assessment chain.
type LedgerEntry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	IMO       string    `json:"imo"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	DataHash  string    `json:"dataHash"`
	PrevHash  string    `json:"prevHash"`
	Hash      string    `json:"hash"`
}

// LedgerStatus is the result of a server-side chain verification.
type LedgerStatus struct {
	Entries int    `json:"entries"`
	Root    string `json:"root"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
}
