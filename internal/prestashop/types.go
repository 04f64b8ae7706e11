package prestashop

import (
	"encoding/json"
	"encoding/xml"
	"strconv"
)

type Customer struct {
	ID        int
	Email     string
	FirstName string
	LastName  string
}

type CustomerInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type AddressInput struct {
	CustomerID int
	Alias      string
	FirstName  string
	LastName   string
	Address1   string
	City       string
	PostCode   string
	Phone      string
	CountryID  int
}

type CartItem struct {
	ProductID          int
	ProductAttributeID int
	Quantity           int
}

type CartInput struct {
	CustomerID int
	AddressID  int
	CurrencyID int
	LanguageID int
	Items      []CartItem
}

type Product struct {
	ID        int
	Name      string
	Reference string
	EAN13     string
	Price     float64
}

type OrderInput struct {
	CartID        int
	CustomerID    int
	AddressID     int
	CarrierID     int
	CurrencyID    int
	LanguageID    int
	Module        string
	Payment       string
	TotalPaid     string
	TotalProducts string
	TotalShipping string
	SecureKey     string
}

// --- XML write envelopes ---

type customerRequest struct {
	XMLName  xml.Name `xml:"prestashop"`
	Customer struct {
		FirstName string `xml:"firstname"`
		LastName  string `xml:"lastname"`
		Email     string `xml:"email"`
		Password  string `xml:"passwd"`
	} `xml:"customer"`
}

type customerCreateResponse struct {
	XMLName  xml.Name `xml:"prestashop"`
	Customer struct {
		ID int `xml:"id"`
	} `xml:"customer"`
}

type addressRequest struct {
	XMLName xml.Name `xml:"prestashop"`
	Address struct {
		CustomerID int    `xml:"id_customer"`
		CountryID  int    `xml:"id_country"`
		Alias      string `xml:"alias"`
		FirstName  string `xml:"firstname"`
		LastName   string `xml:"lastname"`
		Address1   string `xml:"address1"`
		City       string `xml:"city"`
		PostCode   string `xml:"postcode"`
		Phone      string `xml:"phone"`
	} `xml:"address"`
}

type addressCreateResponse struct {
	XMLName xml.Name `xml:"prestashop"`
	Address struct {
		ID int `xml:"id"`
	} `xml:"address"`
}

type cartRow struct {
	ProductID          int `xml:"id_product"`
	ProductAttributeID int `xml:"id_product_attribute"`
	AddressID          int `xml:"id_address_delivery"`
	Quantity           int `xml:"quantity"`
}

type cartRequest struct {
	XMLName xml.Name `xml:"prestashop"`
	Cart    struct {
		CustomerID        int `xml:"id_customer"`
		AddressDeliveryID int `xml:"id_address_delivery"`
		AddressInvoiceID  int `xml:"id_address_invoice"`
		CurrencyID        int `xml:"id_currency"`
		LanguageID        int `xml:"id_lang"`
		Associations      struct {
			CartRows struct {
				Rows []cartRow `xml:"cart_row"`
			} `xml:"cart_rows"`
		} `xml:"associations"`
	} `xml:"cart"`
}

type cartCreateResponse struct {
	XMLName xml.Name `xml:"prestashop"`
	Cart    struct {
		ID int `xml:"id"`
	} `xml:"cart"`
}

type orderRequest struct {
	XMLName xml.Name `xml:"prestashop"`
	Order   struct {
		CartID            int    `xml:"id_cart"`
		CustomerID        int    `xml:"id_customer"`
		AddressDeliveryID int    `xml:"id_address_delivery"`
		AddressInvoiceID  int    `xml:"id_address_invoice"`
		CarrierID         int    `xml:"id_carrier"`
		CurrencyID        int    `xml:"id_currency"`
		LanguageID        int    `xml:"id_lang"`
		Module            string `xml:"module"`
		Payment           string `xml:"payment"`
		TotalPaid         string `xml:"total_paid"`
		TotalPaidTaxIncl  string `xml:"total_paid_tax_incl"`
		TotalPaidTaxExcl  string `xml:"total_paid_tax_excl"`
		TotalPaidReal     string `xml:"total_paid_real"`
		TotalProducts     string `xml:"total_products"`
		TotalProductsWT   string `xml:"total_products_wt"`
		TotalShipping     string `xml:"total_shipping"`
		ConversionRate    string `xml:"conversion_rate"`
		SecureKey         string `xml:"secure_key"`
	} `xml:"order"`
}

type orderCreateResponse struct {
	XMLName xml.Name `xml:"prestashop"`
	Order   struct {
		ID        int    `xml:"id"`
		Reference string `xml:"reference"`
	} `xml:"order"`
}

// --- JSON read shapes ---

type customerListResponse struct {
	Customers []struct {
		ID        intOrString `json:"id"`
		Email     string      `json:"email"`
		FirstName string      `json:"firstname"`
		LastName  string      `json:"lastname"`
	} `json:"customers"`
}

type productResponse struct {
	Product struct {
		ID        intOrString    `json:"id"`
		Name      multilangField `json:"name"`
		Reference string         `json:"reference"`
		EAN13     string         `json:"ean13"`
		Price     string         `json:"price"`
	} `json:"product"`
}

// intOrString tolerates PrestaShop returning IDs either as numbers or strings.
type intOrString int

func (i *intOrString) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*i = intOrString(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*i = intOrString(n)
	return nil
}

// multilangField extracts a display value from PrestaShop's multilanguage
// fields, which arrive either as a plain string or a per-language array.
type multilangField string

func (m *multilangField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multilangField(s)
		return nil
	}
	var entries []struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if len(entries) > 0 {
		*m = multilangField(entries[0].Value)
	}
	return nil
}
