package records

import (
	"fmt"

	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/schema"
)

// modelFor returns an empty model addressing t.
func modelFor(t schema.Table) (any, bool) {
	switch t {
	case schema.Clients:
		return &models.Client{}, true
	case schema.Panels:
		return &models.Panel{}, true
	case schema.Apps:
		return &models.App{}, true
	case schema.ContactTypes:
		return &models.ContactType{}, true
	case schema.PaymentMethods:
		return &models.PaymentMethod{}, true
	case schema.PricingConfig:
		return &models.PricingConfig{}, true
	case schema.Questions:
		return &models.Question{}, true
	case schema.SmartTVActivations:
		return &models.SmartTVActivation{}, true
	case schema.Settings:
		return &models.Setting{}, true
	default:
		return nil, false
	}
}

// newRow builds the model for a reference-table insert and returns a pointer to its id.
func newRow(t schema.Table, values map[schema.Column]any) (any, *uint64, error) {
	str := func(col schema.Column) string {
		v, _ := values[col].(string)
		return v
	}
	num := func(col schema.Column) float64 {
		v, _ := values[col].(float64)
		return v
	}
	currency := func() string {
		if v := str(schema.ColCurrency); v != "" {
			return v
		}
		return "PLN"
	}

	switch t {
	case schema.Panels:
		row := &models.Panel{Name: str(schema.ColName), URL: str(schema.ColURL), Username: str(schema.ColUsername), Password: str(schema.ColPassword)}
		return row, &row.ID, nil
	case schema.Apps:
		row := &models.App{Name: str(schema.ColName), PackageName: str(schema.ColPackageName), AppCode: str(schema.ColAppCode)}
		return row, &row.ID, nil
	case schema.ContactTypes:
		row := &models.ContactType{Name: str(schema.ColName)}
		return row, &row.ID, nil
	case schema.PaymentMethods:
		row := &models.PaymentMethod{Name: str(schema.ColName)}
		return row, &row.ID, nil
	case schema.PricingConfig:
		row := &models.PricingConfig{Name: str(schema.ColName), Price: num(schema.ColPrice), Currency: currency()}
		return row, &row.ID, nil
	case schema.Questions:
		row := &models.Question{Question: str(schema.ColQuestion), Answer: str(schema.ColAnswer)}
		return row, &row.ID, nil
	case schema.SmartTVActivations:
		row := &models.SmartTVActivation{
			ActivationID: str(schema.ColActivationID),
			AppName:      str(schema.ColAppName),
			AppPrice:     num(schema.ColAppPrice),
			Currency:     currency(),
		}
		return row, &row.ID, nil
	default:
		return nil, nil, fmt.Errorf("records: insert into %s is not supported", t)
	}
}
