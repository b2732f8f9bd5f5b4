// Package roster は新入社員名簿シートの正規化と開始日ウィンドウの判定を提供する。
// 外部サービスには依存せず、入力に対して明示的な結果を返す純粋な関数群で構成する。
package roster

// Columns はシートの列名。
type Columns struct {
	EmployeeID         string `yaml:"employee_id"`
	Name               string `yaml:"name"`
	Address            string `yaml:"address"`
	Phone              string `yaml:"phone"`
	StartDate          string `yaml:"start_date"`
	PersonalEmail      string `yaml:"personal_email"`
	EquipmentKind      string `yaml:"equipment_kind"`
	PhoneExtensionKind string `yaml:"phone_extension_kind"`
	DeliveryNote       string `yaml:"delivery_note"`
	ContractStatus     string `yaml:"contract_status"`
}

// Policy は名簿シートの解釈ルール。POLICY_FILE のYAMLで上書きできる。
type Policy struct {
	Columns Columns `yaml:"columns"`

	// SignedStatus は契約列がこの値と完全一致する行だけを残す。
	SignedStatus string `yaml:"signed_status"`
	// SelfPickupNote は配送メモ列がこの値（大文字小文字・記号を無視）の場合に自己受け取りとする。
	SelfPickupNote string `yaml:"self_pickup_note"`
	// ExcludedAddressTerms は住所に含まれていたら行を除外する語句。
	ExcludedAddressTerms []string `yaml:"excluded_address_terms"`
	// DateLayout はテキストで入力された開始日の書式（Goのレイアウト表記）。
	DateLayout string `yaml:"date_layout"`

	DefaultEquipmentKind      string `yaml:"default_equipment_kind"`
	DefaultPhoneExtensionKind string `yaml:"default_phone_extension_kind"`
	DefaultDeliveryNote       string `yaml:"default_delivery_note"`
}

// DefaultPolicy は運用中の名簿シートに合わせた既定のポリシーを返す。
func DefaultPolicy() Policy {
	return Policy{
		Columns: Columns{
			EmployeeID:         "employeeID",
			Name:               "name",
			Address:            "address",
			Phone:              "phone",
			StartDate:          "start date",
			PersonalEmail:      "e-mail before start",
			EquipmentKind:      "laptop",
			PhoneExtensionKind: "telefon sluzbowy",
			DeliveryNote:       "Dodatkowe( wczesniejsza wysylka lub odbiór osobisty)",
			ContractStatus:     "umowa",
		},
		SignedStatus:              "podpisana",
		SelfPickupNote:            "osobiście odbiór",
		ExcludedAddressTerms:      []string{"mexico", "méxico"},
		DateLayout:                "2.1.2006",
		DefaultEquipmentKind:      "standard win",
		DefaultPhoneExtensionKind: " ",
		DefaultDeliveryNote:       " ",
	}
}

// Merge は空でない項目だけを上書きしたポリシーを返す。
func (p Policy) Merge(o Policy) Policy {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Columns.EmployeeID, o.Columns.EmployeeID)
	set(&p.Columns.Name, o.Columns.Name)
	set(&p.Columns.Address, o.Columns.Address)
	set(&p.Columns.Phone, o.Columns.Phone)
	set(&p.Columns.StartDate, o.Columns.StartDate)
	set(&p.Columns.PersonalEmail, o.Columns.PersonalEmail)
	set(&p.Columns.EquipmentKind, o.Columns.EquipmentKind)
	set(&p.Columns.PhoneExtensionKind, o.Columns.PhoneExtensionKind)
	set(&p.Columns.DeliveryNote, o.Columns.DeliveryNote)
	set(&p.Columns.ContractStatus, o.Columns.ContractStatus)
	set(&p.SignedStatus, o.SignedStatus)
	set(&p.SelfPickupNote, o.SelfPickupNote)
	set(&p.DateLayout, o.DateLayout)
	set(&p.DefaultEquipmentKind, o.DefaultEquipmentKind)
	set(&p.DefaultPhoneExtensionKind, o.DefaultPhoneExtensionKind)
	set(&p.DefaultDeliveryNote, o.DefaultDeliveryNote)
	if len(o.ExcludedAddressTerms) > 0 {
		p.ExcludedAddressTerms = append([]string(nil), o.ExcludedAddressTerms...)
	}
	return p
}
