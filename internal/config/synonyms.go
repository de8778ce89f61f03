package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/partbot/internal/core"
)

// synonymFile is the layout of SYNONYMS_FILE:
//
//	master:
//	  pid: [PartID, Kode Part]
//	  locs: [KodeLokasi, Rak, Tingkat, Nomor]
//	ledger:
//	  tujuan: [Tujuan/Penggunaan, Keperluan]
//
// Keys are canonical field names.
type synonymFile struct {
	Master map[string][]string `yaml:"master"`
	Ledger map[string][]string `yaml:"ledger"`
}

// Synonyms builds the synonym tables: built-in defaults, then the
// optional YAML file, then environment lists.
func (c *Config) Synonyms() (core.Synonyms, error) {
	syn := core.DefaultSynonyms()

	if c.Columns.SynonymsFile != "" {
		fromFile, err := readSynonymFile(c.Columns.SynonymsFile)
		if err != nil {
			return core.Synonyms{}, &core.ConfigurationError{Setting: "SYNONYMS_FILE", Message: err.Error()}
		}
		syn = syn.Merge(fromFile)
	}

	return syn.Merge(c.Columns.overrides()), nil
}

func (c ColumnsConfig) overrides() core.Synonyms {
	return core.Synonyms{
		Master: core.SynonymSet{
			core.FieldID:              c.PartID,
			core.FieldName:            c.Name,
			core.FieldLocation:        c.Locations,
			core.FieldPrimaryLocation: c.PrimaryLocation,
			core.FieldBin:             c.Bin,
			core.FieldVisual:          c.Visual,
		},
		Ledger: core.SynonymSet{
			core.FieldTimestamp: c.LedgerTimestamp,
			core.FieldPartID:    c.LedgerPartID,
			core.FieldMovement:  c.LedgerMovement,
			core.FieldQuantity:  c.LedgerQuantity,
			core.FieldCondition: c.LedgerCondition,
			core.FieldUserID:    c.LedgerUserID,
			core.FieldPurpose:   c.LedgerPurpose,
		},
	}
}

func readSynonymFile(path string) (core.Synonyms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Synonyms{}, fmt.Errorf("read synonyms: %w", err)
	}
	return parseSynonyms(data)
}

func parseSynonyms(data []byte) (core.Synonyms, error) {
	var f synonymFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return core.Synonyms{}, fmt.Errorf("parse synonyms: %w", err)
	}

	master, err := toSet(f.Master, core.MasterFields, "master")
	if err != nil {
		return core.Synonyms{}, err
	}
	ledger, err := toSet(f.Ledger, core.LedgerFields, "ledger")
	if err != nil {
		return core.Synonyms{}, err
	}
	return core.Synonyms{Master: master, Ledger: ledger}, nil
}

func toSet(raw map[string][]string, known []core.Field, table string) (core.SynonymSet, error) {
	set := make(core.SynonymSet, len(raw))
	for key, list := range raw {
		f := core.Field(key)
		if !containsField(known, f) {
			return nil, fmt.Errorf("unknown %s field %q (want one of %v)", table, key, known)
		}
		set[f] = list
	}
	return set, nil
}

func containsField(fields []core.Field, f core.Field) bool {
	for _, k := range fields {
		if k == f {
			return true
		}
	}
	return false
}

// CoreOptions returns the movement and condition choice sets.
func (c *Config) CoreOptions() core.Options {
	return core.Options{
		Movements:  append([]string(nil), c.Options.Movements...),
		Conditions: append([]string(nil), c.Options.Conditions...),
	}
}
