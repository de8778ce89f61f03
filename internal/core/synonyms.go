package core

// Field is a canonical column name that header cells are resolved to.
type Field string

// Ledger fields. Every one of these must resolve in the ledger header.
const (
	FieldTimestamp Field = "timestamp"
	FieldPartID    Field = "partid"
	FieldMovement  Field = "jenis"
	FieldQuantity  Field = "jumlah"
	FieldCondition Field = "kondisi"
	FieldUserID    Field = "userid"
	FieldPurpose   Field = "tujuan"
)

// Master catalog fields. Only one of FieldID and FieldName is mandatory.
const (
	FieldID              Field = "pid"
	FieldName            Field = "name"
	FieldLocation        Field = "locs"
	FieldPrimaryLocation Field = "primary"
	FieldBin             Field = "bin"
	FieldVisual          Field = "visual"
)

// LedgerFields lists the required ledger fields in report order.
var LedgerFields = []Field{
	FieldTimestamp,
	FieldPartID,
	FieldMovement,
	FieldQuantity,
	FieldCondition,
	FieldUserID,
	FieldPurpose,
}

// MasterFields lists the master catalog fields in report order.
var MasterFields = []Field{
	FieldID,
	FieldName,
	FieldLocation,
	FieldPrimaryLocation,
	FieldBin,
	FieldVisual,
}

// SynonymSet maps a field to the header spellings accepted for it.
// Synonym order carries no priority.
type SynonymSet map[Field][]string

// Synonyms holds the synonym tables for both sheets. Treat it as immutable
// once built; use Merge to derive an overridden copy.
type Synonyms struct {
	Ledger SynonymSet
	Master SynonymSet
}

// DefaultSynonyms returns the built-in synonym tables.
func DefaultSynonyms() Synonyms {
	return Synonyms{
		Ledger: SynonymSet{
			FieldTimestamp: {"Timestamp"},
			FieldPartID:    {"PartID"},
			FieldMovement:  {"Jenis"},
			FieldQuantity:  {"Jumlah"},
			FieldCondition: {"Kondisi"},
			FieldUserID:    {"UserID"},
			FieldPurpose:   {"Tujuan/Penggunaan"},
		},
		Master: SynonymSet{
			FieldID:              {"PartID", "Part ID", "Kode", "Kode Part", "ID Part", "ID Barang", "ID"},
			FieldName:            {"NamaPart", "Nama Barang", "Nama", "Deskripsi", "Item", "Part Name"},
			FieldLocation:        {"KodeLokasi", "Lokasi", "Rak", "Tingkat", "Nomor"},
			FieldPrimaryLocation: {"KodeLokasi"},
			FieldBin:             {"Nomor"},
			FieldVisual:          {"Visual", "Visual Management", "Foto", "Image", "Gambar", "Link Visual"},
		},
	}
}

// Merge returns a copy of s where every non-empty list in override replaces
// the corresponding list in s.
func (s Synonyms) Merge(override Synonyms) Synonyms {
	return Synonyms{
		Ledger: s.Ledger.merge(override.Ledger),
		Master: s.Master.merge(override.Master),
	}
}

func (set SynonymSet) merge(override SynonymSet) SynonymSet {
	out := make(SynonymSet, len(set))
	for f, syns := range set {
		out[f] = append([]string(nil), syns...)
	}
	for f, syns := range override {
		if len(syns) > 0 {
			out[f] = append([]string(nil), syns...)
		}
	}
	return out
}
