package threat_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmerrifield20/seasense/internal/threat"
	"github.com/jmerrifield20/seasense/internal/vessel/model"
)

func TestDefaultRuleset(t *testing.T) {
	rs, err := threat.DefaultRuleset()
	require.NoError(t, err)

	assert.Equal(t, "Hazardous Liquid Tanker", rs.Door.Name)
	assert.Equal(t, 30, rs.Door.Weight)
	require.Len(t, rs.Rules, 2)
	assert.Equal(t, "Sanction List", rs.Rules[0].Name)
	assert.Equal(t, 20, rs.Rules[0].Weight)
	assert.Equal(t, "Owner Unknown", rs.Rules[1].Name)
	assert.Equal(t, 10, rs.Rules[1].Weight)
	assert.Len(t, rs.ManualRules, 4)
	assert.Equal(t, []threat.Level{{Level: 1, Threshold: 30}, {Level: 2, Threshold: 50}, {Level: 3, Threshold: 70}, {Level: 4, Threshold: 100}}, rs.Levels)
	assert.Equal(t, "Invalid IMO", rs.Unresolved.MissingIdentifier.Name)
	assert.Equal(t, 100, rs.Unresolved.ConflictingIdentity.Weight)
}

func TestDefaultRuleset_headers(t *testing.T) {
	rs, err := threat.DefaultRuleset()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"IMO", "Vessel Name",
		"Hazardous Liquid Tanker", "Sanction List", "Owner Unknown",
		"Dangerous Cargo (MANUAL)", "Late Pre-arrival (MANUAL)", "AIS inactive (MANUAL)", "COI Port Calls (MANUAL)",
		"Total Score", "Threat Level",
	}, rs.Headers())
}

func TestDefaultRuleset_doorPrefix(t *testing.T) {
	rs, err := threat.DefaultRuleset()
	require.NoError(t, err)

	for code, want := range map[string]bool{
		"A13":     true,
		"A11A2TN": true,
		"a12":     true,
		"A22":     false,
		"B01":     false,
		"":        false,
	} {
		assert.Equal(t, want, rs.Door.Predicate(&model.Vessel{StatCode5: code}), code)
	}
}

func TestUnknownOwnerPredicate(t *testing.T) {
	rs, err := threat.DefaultRuleset()
	require.NoError(t, err)
	owner := rs.Rules[1].Predicate

	for name, want := range map[string]bool{
		"":                   true,
		"   ":                true,
		".":                  true,
		" . ":                true,
		"UNKNOWN":            true,
		"Unknown Holdings":   true,
		"owner unknown ltd":  true,
		"Acme Shipping":      false,
		"Known Carriers Inc": false,
	} {
		assert.Equal(t, want, owner(&model.Vessel{RegisteredOwner: name}), "%q", name)
	}
}

func TestSanctionListPredicate(t *testing.T) {
	rs, err := threat.DefaultRuleset()
	require.NoError(t, err)
	sanction := rs.Rules[0].Predicate

	assert.False(t, sanction(&model.Vessel{}))
	assert.True(t, sanction(&model.Vessel{OnUNSanctionList: "True"}))
	assert.True(t, sanction(&model.Vessel{OnUSTreasuryOFACAdvisoryList: "true"}))
	assert.False(t, sanction(&model.Vessel{OnEUSanctionList: "False"}))
}

const validYAML = `
door:
  name: Tanker
  kind: vessel_type_prefix
  weight: 30
  description: "Type {shiptypeLevel5}"
  params: {prefixes: [A11, A12, A13]}
rules:
  - name: Flag of concern
    kind: flag_in
    weight: 15
    description: "Flagged {flagName}"
    params: {flags: [Cameroon, Gabon]}
  - name: Owner country
    kind: owner_country_in
    weight: 5
    description: "Owner country of interest"
    params: {countries: [Iran]}
  - name: Operator unknown
    kind: unknown_owner
    weight: 5
    description: "No operator"
    params: {field: operator}
manual_rules:
  - name: Cargo
    weight: 10
    description: "Dangerous cargo"
levels:
  - {level: 1, threshold: 30}
  - {level: 2, threshold: 45}
`

func TestParseRuleset_customKinds(t *testing.T) {
	rs, err := threat.ParseRuleset([]byte(validYAML))
	require.NoError(t, err)

	v := &model.Vessel{
		StatCode5:                            "A12",
		ShiptypeLevel5:                       "Chemical Tanker",
		FlagName:                             " gabon ",
		RegisteredOwnerCountryOfRegistration: "Iran",
		Operator:                             "Unknown",
	}
	res := threat.ScoreVessel(v, rs)
	assert.Equal(t, 55, res.Score)
	assert.Equal(t, 2, res.Level)
	assert.Equal(t, "Type Chemical Tanker", res.CheckedRules[0].Description)
	assert.Equal(t, "Flagged  gabon ", res.CheckedRules[1].Description)

	// Defaults fill the synthetic rules.
	assert.Equal(t, "Incorrect IMO", rs.Unresolved.ConflictingIdentity.Name)
	assert.Equal(t, "Tanker", rs.Config().Door.Name)
}

func TestParseRuleset_rejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"manual door": `
door: {name: D, kind: manual, weight: 30, description: d}
levels: [{level: 1, threshold: 30}]`,
		"door without kind": `
door: {name: D, weight: 30, description: d}`,
		"unknown kind": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
rules: [{name: R, kind: crystal_ball, weight: 5, description: r}]`,
		"manual in auto rules": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
rules: [{name: R, kind: manual, weight: 5, description: r}]`,
		"auto kind in manual rules": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
manual_rules: [{name: M, kind: flag_in, weight: 5, description: m, params: {flags: [X]}}]`,
		"zero weight": `
door: {name: D, kind: vessel_type_prefix, weight: 0, description: d, params: {prefixes: [A1]}}`,
		"missing prefixes": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d}`,
		"unknown template field": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: "{colour}", params: {prefixes: [A1]}}`,
		"unsorted thresholds": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
levels: [{level: 1, threshold: 50}, {level: 2, threshold: 30}]`,
		"descending levels": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
levels: [{level: 3, threshold: 30}, {level: 2, threshold: 50}]`,
		"level zero": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
levels: [{level: 0, threshold: 30}]`,
		"duplicate names": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
rules: [{name: D, kind: flag_in, weight: 5, description: r, params: {flags: [X]}}]`,
		"unknown sanction list": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
rules: [{name: R, kind: sanction_list, weight: 5, description: r, params: {lists: [interpol]}}]`,
		"unresolved name clashes with auto rule": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
rules: [{name: Sanction List, kind: sanction_list, weight: 20, description: r}]
unresolved:
  missing_identifier: {name: Sanction List, weight: 100, description: m}`,
		"unresolved names clash with each other": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
unresolved:
  missing_identifier: {name: Bad IMO, weight: 100, description: m}
  conflicting_identity: {name: Bad IMO, weight: 100, description: c}`,
		"unresolved rule with predicate kind": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
unresolved:
  conflicting_identity: {name: Wrong IMO, kind: flag_in, weight: 100, description: c, params: {flags: [X]}}`,
		"unknown yaml key": `
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
colour: red`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := threat.ParseRuleset([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, threat.ErrInvalidRuleset)
		})
	}
}

func TestLoadRuleset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	rs, err := threat.LoadRuleset(path)
	require.NoError(t, err)
	assert.Len(t, rs.Rules, 3)

	_, err = threat.LoadRuleset(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRuleset_ValidateHandBuilt(t *testing.T) {
	rs := &threat.Ruleset{Door: threat.Rule{Name: "door", Weight: 10}}
	assert.ErrorIs(t, rs.Validate(), threat.ErrInvalidRuleset)

	rs.Door.Predicate = func(*model.Vessel) bool { return true }
	assert.NoError(t, rs.Validate())
}

func TestParseRuleset_unresolvedManualKindAccepted(t *testing.T) {
	rs, err := threat.ParseRuleset([]byte(`
door: {name: D, kind: vessel_type_prefix, weight: 30, description: d, params: {prefixes: [A1]}}
unresolved:
  missing_identifier: {name: No IMO, kind: manual, weight: 90, description: m}`))
	require.NoError(t, err)
	assert.Equal(t, "No IMO", rs.Unresolved.MissingIdentifier.Name)
	assert.Equal(t, threat.KindManual, rs.Unresolved.MissingIdentifier.Kind)
}

func TestParseRuleset_templateCoversNumericAndSanctionFields(t *testing.T) {
	rs, err := threat.ParseRuleset([]byte(`
door:
  name: Big tanker
  kind: vessel_type_prefix
  weight: 30
  description: "{grossTonnage} GT, EU listed: {shiponEuSanctionList}"
  params: {prefixes: [A1]}
levels: [{level: 1, threshold: 30}]`))
	require.NoError(t, err)

	res := threat.ScoreVessel(&model.Vessel{StatCode5: "A13", GrossTonnage: 156000, OnEUSanctionList: model.SanctionListed}, rs)
	assert.Equal(t, "156000 GT, EU listed: True", res.CheckedRules[0].Description)
}
