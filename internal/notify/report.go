package notify

import (
	"strconv"

	"github.com/hitoshi/newcomers/internal/model"
)

// Table はレポート本文の表。
type Table struct {
	Headers []string
	Rows    [][]string
}

// Report は社内向けレポートメール1通分の内容。
type Report struct {
	Subject string
	Intro   []string
	Table   Table
	Footer  string
}

// Empty は表に行がないかを返す。
func (r Report) Empty() bool {
	return len(r.Table.Rows) == 0
}

// Mismatch はシート上の氏名とディレクトリの表示名が一致しなかった行。
type Mismatch struct {
	Sheet         string
	Row           int
	EmployeeID    int
	SheetName     string
	DirectoryName string
}

// ShipmentReport は宅配便の手配依頼を組み立てる。
func ShipmentReport(records []model.OnboardingRecord) Report {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		validated := "yes"
		if !r.AddressValidated {
			validated = "no"
		}
		rows = append(rows, []string{r.Name, r.Address, r.Phone, validated})
	}
	return Report{
		Subject: "Ordering a shipment courier",
		Intro:   []string{"Please order a courier and prepare a delivery note for:"},
		Table:   Table{Headers: []string{"Name", "Address", "Phone", "Address validated"}, Rows: rows},
		Footer:  "Automatically generated email. Addresses were checked with the address validation API.",
	}
}

// SelfPickupReport はオフィスでの受け取り予定者の一覧を組み立てる。
func SelfPickupReport(records []model.OnboardingRecord) Report {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Name, r.Address, r.Phone, r.DeliveryNote})
	}
	return Report{
		Subject: "SELF PICKUP",
		Intro:   []string{"The following newcomers will pick up their equipment at the office:"},
		Table:   Table{Headers: []string{"Name", "Address", "Phone", "Delivery note"}, Rows: rows},
	}
}

// EquipmentReport は機材準備の一覧を組み立てる。
func EquipmentReport(records []model.OnboardingRecord) Report {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Name, r.StartDate.String(), r.EquipmentKind, r.PhoneExtensionKind, r.DeliveryNote})
	}
	return Report{
		Subject: "EQUIPMENT DATA",
		Intro:   []string{"Equipment to prepare for upcoming newcomers:"},
		Table:   Table{Headers: []string{"Name", "Start date", "Laptop", "Phone", "Delivery note"}, Rows: rows},
	}
}

// LeaversReport は資格情報リストにいない従業員（長期離脱からの復帰者）の一覧を組み立てる。
func LeaversReport(employees []model.ResolvedEmployee, resetNote string) Report {
	rows := make([][]string, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, []string{strconv.Itoa(e.EmployeeID), e.DirectoryID, e.DisplayName, e.StartDateISO()})
	}
	var intro []string
	if resetNote != "" {
		intro = append(intro, resetNote)
	}
	return Report{
		Subject: "Long Term Leavers",
		Intro:   intro,
		Table:   Table{Headers: []string{"Employee id", "Directory id", "Name", "Start date"}, Rows: rows},
	}
}

// VerificationReport は本人確認に失敗した行の一覧を組み立てる。
func VerificationReport(mismatches []Mismatch) Report {
	rows := make([][]string, 0, len(mismatches))
	for _, m := range mismatches {
		rows = append(rows, []string{m.Sheet, strconv.Itoa(m.Row), strconv.Itoa(m.EmployeeID), m.SheetName, m.DirectoryName})
	}
	return Report{
		Subject: "Newcomer identity verification failures",
		Intro:   []string{"The name in the roster does not match the directory for these rows. No welcome mail was sent:"},
		Table:   Table{Headers: []string{"Sheet", "Row", "Employee id", "Roster name", "Directory name"}, Rows: rows},
	}
}

// MissingEmailReport は個人メールアドレスがないため処理を保留した従業員の一覧を組み立てる。
func MissingEmailReport(sheet string, employees []model.ResolvedEmployee) Report {
	rows := make([][]string, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, []string{sheet, strconv.Itoa(e.EmployeeID), e.DisplayName, e.StartDateISO()})
	}
	return Report{
		Subject: "Newcomers without a personal e-mail",
		Intro:   []string{"No welcome mail can be sent to these newcomers. Fill in the e-mail in the roster; they will be processed on the next run:"},
		Table:   Table{Headers: []string{"Sheet", "Employee id", "Name", "Start date"}, Rows: rows},
	}
}
