package gateway

import (
	"fmt"
	"sort"
	"strings"

	billingerrors "plans/internal/errors"
	"plans/internal/validation"
)

// Customer identifies the card holder towards the processor.
type Customer struct {
	FirstName string
	LastName  string
	Company   string
	Phone     string
	Fax       string
	Website   string
	Email     string
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Address struct {
	StreetAddress   string
	ExtendedAddress string
	Locality        string
	Region          string
	PostalCode      string
	CountryCode     string
}

// Options are the optional request fields of every gateway operation.
// Unset fields are empty strings, never absent.
type Options struct {
	Customer        Customer
	BillingAddress  Address
	ShippingAddress Address

	// CustomerID is the processor customer the operation is scoped to.
	CustomerID         string
	PlanID             string
	PaymentMethodToken string
	SubscriptionID     string
	Currency           string
	OrderID            string
}

var optionFields = map[string]func(*Options) *string{
	"customer_id":          func(o *Options) *string { return &o.CustomerID },
	"plan_id":              func(o *Options) *string { return &o.PlanID },
	"payment_method_token": func(o *Options) *string { return &o.PaymentMethodToken },
	"subscription_id":      func(o *Options) *string { return &o.SubscriptionID },
	"currency":             func(o *Options) *string { return &o.Currency },
	"order_id":             func(o *Options) *string { return &o.OrderID },

	"customer.first_name": func(o *Options) *string { return &o.Customer.FirstName },
	"customer.last_name":  func(o *Options) *string { return &o.Customer.LastName },
	"customer.company":    func(o *Options) *string { return &o.Customer.Company },
	"customer.phone":      func(o *Options) *string { return &o.Customer.Phone },
	"customer.fax":        func(o *Options) *string { return &o.Customer.Fax },
	"customer.website":    func(o *Options) *string { return &o.Customer.Website },
	"customer.email":      func(o *Options) *string { return &o.Customer.Email },
}

func init() {
	for _, prefix := range []string{"billing_address", "shipping_address"} {
		pick := func(o *Options) *Address { return &o.BillingAddress }
		if prefix == "shipping_address" {
			pick = func(o *Options) *Address { return &o.ShippingAddress }
		}
		optionFields[prefix+".street_address"] = func(o *Options) *string { return &pick(o).StreetAddress }
		optionFields[prefix+".extended_address"] = func(o *Options) *string { return &pick(o).ExtendedAddress }
		optionFields[prefix+".locality"] = func(o *Options) *string { return &pick(o).Locality }
		optionFields[prefix+".region"] = func(o *Options) *string { return &pick(o).Region }
		optionFields[prefix+".postal_code"] = func(o *Options) *string { return &pick(o).PostalCode }
		optionFields[prefix+".country_code"] = func(o *Options) *string { return &pick(o).CountryCode }
	}
}

// OptionKeys lists the keys understood by OptionsFromMap and Require.
func OptionKeys() []string {
	keys := make([]string, 0, len(optionFields))
	for k := range optionFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OptionsFromMap builds Options from a loose keyword map. Nested maps and
// dotted keys are both accepted, so {"customer": {"email": ...}} and
// {"customer.email": ...} are equivalent. Unknown keys are ignored.
func OptionsFromMap(m map[string]interface{}) Options {
	var o Options
	flat := make(map[string]string)
	flatten("", m, flat)
	for key, val := range flat {
		if field, ok := optionFields[key]; ok {
			*field(&o) = val
		}
	}
	return o
}

func flatten(prefix string, m map[string]interface{}, out map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case map[string]string:
			for nk, nv := range val {
				out[key+"."+nk] = nv
			}
		case nil:
			out[key] = ""
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Require fails with ErrMissingParameter naming the first empty field.
// Fields use the OptionsFromMap keys.
func (o Options) Require(fields ...string) error {
	for _, f := range fields {
		field, ok := optionFields[f]
		if !ok || strings.TrimSpace(*field(&o)) == "" {
			return billingerrors.ErrMissingParameter.Withf("%s", f)
		}
	}
	return nil
}

// Validate checks the format of the contact fields that are set. Empty
// fields pass.
func (o Options) Validate() error {
	v := validation.New()
	v.Email("customer.email", o.Customer.Email)
	v.Phone("customer.phone", o.Customer.Phone)
	v.Phone("customer.fax", o.Customer.Fax)
	if o.Currency != "" {
		v.Currency("currency", strings.ToUpper(o.Currency))
	}
	return v.Err()
}

// CurrencyOr returns the requested currency or fallback.
func (o Options) CurrencyOr(fallback string) string {
	if o.Currency != "" {
		return strings.ToUpper(o.Currency)
	}
	return fallback
}

// WithoutCustomerInfo keeps only what identifies the processor customer:
// the customer id and email. Names, phone numbers and addresses are
// dropped.
func (o Options) WithoutCustomerInfo() Options {
	o.Customer = Customer{Email: o.Customer.Email}
	o.BillingAddress = Address{}
	o.ShippingAddress = Address{}
	return o
}
