package auth

import (
	"fmt"
	"regexp"
	"strings"
)

// StoreType is the kind of pharmacy being registered.
type StoreType string

const (
	StoreRetail    StoreType = "Retail"
	StoreWholesale StoreType = "Wholesale"
	StoreBoth      StoreType = "Both"
)

// Registration wizard steps. StepReview has no fields of its own.
const (
	StepOwner   = 1
	StepStore   = 2
	StepLicense = 3
	StepAddress = 4
	StepReview  = 5
)

// Field names a single input of the registration form.
type Field string

const (
	FieldFullName            Field = "fullName"
	FieldMobile              Field = "mobile"
	FieldEmail               Field = "email"
	FieldStoreName           Field = "storeName"
	FieldStoreType           Field = "storeType"
	FieldGSTNumber           Field = "gstNumber"
	FieldPharmacistRegNumber Field = "pharmacistRegNumber"
	FieldAddress             Field = "address"
	FieldCity                Field = "city"
	FieldState               Field = "state"
	FieldPincode             Field = "pincode"
)

// OwnerDetails is step 1.
type OwnerDetails struct {
	FullName string `json:"fullName"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
}

// StoreInfo is step 2.
type StoreInfo struct {
	Name      string    `json:"name"`
	Type      StoreType `json:"type"`
	GSTNumber string    `json:"gstNumber"`
}

// LicenseInfo is step 3.
type LicenseInfo struct {
	PharmacistRegNumber string `json:"pharmacistRegNumber"`
}

// AddressInfo is step 4.
type AddressInfo struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// RegistrationForm is the whole wizard.
type RegistrationForm struct {
	Owner   OwnerDetails `json:"owner"`
	Store   StoreInfo    `json:"store"`
	License LicenseInfo  `json:"license"`
	Address AddressInfo  `json:"addressInfo"`
}

// NewRegistrationForm returns an empty form with the default store type.
func NewRegistrationForm() RegistrationForm {
	return RegistrationForm{Store: StoreInfo{Type: StoreRetail}}
}

var (
	formEmailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	formMobileRe  = regexp.MustCompile(`^[0-9]{10}$`)
	formPincodeRe = regexp.MustCompile(`^[0-9]{6}$`)
)

// Set sanitises value for field and stores it. Mobile keeps at most ten
// digits, pincode at most six, GST numbers are upper-cased.
func (f *RegistrationForm) Set(field Field, value string) error {
	switch field {
	case FieldFullName:
		f.Owner.FullName = value
	case FieldMobile:
		f.Owner.Mobile = digitsOnly(value, 10)
	case FieldEmail:
		f.Owner.Email = value
	case FieldStoreName:
		f.Store.Name = value
	case FieldStoreType:
		t := StoreType(value)
		if t != StoreRetail && t != StoreWholesale && t != StoreBoth {
			return fmt.Errorf("unknown store type %q", value)
		}
		f.Store.Type = t
	case FieldGSTNumber:
		f.Store.GSTNumber = strings.ToUpper(value)
	case FieldPharmacistRegNumber:
		f.License.PharmacistRegNumber = value
	case FieldAddress:
		f.Address.Address = value
	case FieldCity:
		f.Address.City = value
	case FieldState:
		f.Address.State = value
	case FieldPincode:
		f.Address.Pincode = digitsOnly(value, 6)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// ValidateStep returns the first problem with the given step's fields, or
// "" when the step is complete. Steps without fields always pass.
func (f RegistrationForm) ValidateStep(step int) string {
	switch step {
	case StepOwner:
		switch {
		case strings.TrimSpace(f.Owner.FullName) == "":
			return "Full Name is required"
		case !formMobileRe.MatchString(f.Owner.Mobile):
			return "Valid 10-digit mobile required"
		case !formEmailRe.MatchString(f.Owner.Email):
			return "Valid email required"
		}
	case StepStore:
		if strings.TrimSpace(f.Store.Name) == "" {
			return "Store Name is required"
		}
	case StepLicense:
		if strings.TrimSpace(f.License.PharmacistRegNumber) == "" {
			return "Registration Number required"
		}
	case StepAddress:
		switch {
		case strings.TrimSpace(f.Address.Address) == "":
			return "Address required"
		case strings.TrimSpace(f.Address.City) == "":
			return "City required"
		case strings.TrimSpace(f.Address.State) == "":
			return "State required"
		case !formPincodeRe.MatchString(f.Address.Pincode):
			return "Valid 6-digit pincode required"
		}
	}
	return ""
}

// RegisterRequest maps the form onto the register endpoint's body.
func (f RegistrationForm) RegisterRequest(password string) RegisterRequest {
	return RegisterRequest{
		Name:                strings.TrimSpace(f.Owner.FullName),
		Email:               strings.TrimSpace(f.Owner.Email),
		Phone:               f.Owner.Mobile,
		Password:            password,
		StoreName:           strings.TrimSpace(f.Store.Name),
		StoreType:           string(f.Store.Type),
		GSTNumber:           f.Store.GSTNumber,
		PharmacistRegNumber: strings.TrimSpace(f.License.PharmacistRegNumber),
		Address:             strings.TrimSpace(f.Address.Address),
		City:                strings.TrimSpace(f.Address.City),
		State:               strings.TrimSpace(f.Address.State),
		Pincode:             f.Address.Pincode,
	}
}

func digitsOnly(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == max {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

