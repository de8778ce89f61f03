package bot

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/partbot/internal/core"
)

// Chat copy. Users are warehouse staff; everything they read is Indonesian.
const (
	msgHelp = "Halo! Perintah tersedia:\n" +
		"- /mutasi - catat In/Out (PartID/Nama -> Jenis -> Jumlah -> Kondisi -> Tujuan -> simpan)\n" +
		"- /cari - cari sparepart (by PartID atau Nama)\n" +
		"- /cancel - batalkan proses yang sedang berjalan"
	msgIdle          = "Ketik /mutasi untuk mencatat mutasi atau /cari untuk mencari sparepart."
	msgUnknown       = "Perintah tidak dikenal."
	msgPartPrompt    = "Kirim *foto QR* atau *ketik PartID/Nama Barang*."
	msgEmptyPart     = "Masukan kosong. Kirim foto QR atau ketik PartID/Nama."
	msgQRUnreadable  = "QR tidak terbaca. Foto ulang atau ketik PartID/Nama."
	msgQRUnsupported = "Foto belum didukung. Ketik PartID/Nama."
	msgAmbiguous     = "Ditemukan beberapa kandidat. Silakan pilih:"
	msgNotInMaster   = "⚠️ PartID tidak ditemukan di master; disimpan apa adanya."
	msgMasterDown    = "⚠️ Master sparepart tidak dapat dibaca; PartID disimpan apa adanya."
	msgQtyPrompt     = "Masukkan *Jumlah* (angka > 0)."
	msgQtyInvalid    = "Jumlah tidak valid. Masukkan nilai > 0."
	msgCondPrompt    = "Pilih *Kondisi*:"
	msgPurposePrompt = "Tulis *Tujuan/Penggunaan* (singkat)."
	msgCancelled     = "Dibatalkan."
	msgStale         = "Pilihan ini sudah tidak berlaku."
	msgExpired       = "Sesi sudah berakhir. Mulai lagi dengan /mutasi atau /cari."

	msgSearchPrompt   = "Ketik *nama barang* atau *PartID* yang ingin dicari."
	msgSearchShort    = "Input terlalu pendek. Input minimal 2 huruf/angka."
	msgSearchNone     = "Tidak ada hasil. Coba kata kunci lain."
	msgSearchMany     = "Ditemukan beberapa kandidat. Pilih salah satu:"
	msgSearchNotFound = "Data tidak ditemukan. Coba cari lagi dengan /cari."
	msgNoVisual       = "(Visual belum tersedia)"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// esc makes user-authored text safe inside a Markdown reply.
func esc(s string) string {
	return markdownEscaper.Replace(s)
}

// code renders s as inline code; backticks cannot be escaped inside it.
func code(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

func movementPrompt(opts core.Options) string {
	return fmt.Sprintf("Pilih *Jenis* (%s):", esc(strings.Join(opts.Movements, "/")))
}

func optionButtons(prefix string, values []string) []Button {
	buttons := make([]Button, 0, len(values))
	for _, v := range values {
		buttons = append(buttons, Button{Label: label(v), Data: prefix + v})
	}
	return buttons
}

func partAccepted(id, name string) string {
	if name == "" {
		return "PartID: " + code(id)
	}
	return fmt.Sprintf("PartID: %s (%s)", code(id), esc(name))
}

func invalidChoice(field string, values []string) string {
	return fmt.Sprintf("%s tidak valid. Pilih salah satu: %s.", field, esc(strings.Join(values, ", ")))
}

func savedMessage(sheet string, r core.Receipt) string {
	return fmt.Sprintf("✅ Tersimpan ke *%s*\nWaktu: %s\nPartID: %s\nJenis: %s | Jumlah: %d | Kondisi: %s",
		esc(sheet),
		r.Timestamp,
		code(r.Record.PartID),
		esc(r.Record.Movement),
		r.Record.Quantity,
		esc(r.Record.Condition),
	)
}

func saveFailed(err error) string {
	return "❌ Gagal menyimpan: " + core.FormatUserError(err)
}

func searchFailed(err error) string {
	return "❌ Gagal mencari: " + core.FormatUserError(err)
}

// partDetails renders one search hit.
func partDetails(rec core.PartRecord) string {
	primary, details := core.FormatLocation(rec)

	name := rec.Name
	if name == "" {
		name = "-"
	}
	visual := msgNoVisual
	if rec.Visual != "" {
		visual = esc(rec.Visual)
	}

	var b strings.Builder
	b.WriteString("*Hasil*\n")
	fmt.Fprintf(&b, "PartID: %s\n", code(rec.ID))
	fmt.Fprintf(&b, "Nama: %s\n", esc(name))
	b.WriteString(esc(primary) + "\n")
	if details != "" {
		b.WriteString(esc(details) + "\n")
	}
	b.WriteString("Visual: " + visual)
	return b.String()
}

// schemaDump lists the ledger header and the resolved positions.
func schemaDump(sheet string, schema core.LedgerSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Header %s:\n", sheet)
	for i, h := range schema.Header {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	b.WriteString("\nIndex:\n")
	for _, f := range core.LedgerFields {
		fmt.Fprintf(&b, "%s: %d\n", f, schema.Index[f])
	}
	return "```\n" + strings.ReplaceAll(b.String(), "`", "'") + "```"
}
