package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

// resolveAddresses returns the shipping and billing address ids of a new
// order. A missing shipping address is synthesized from the buyer profile.
// Billing falls back to shipping unless a distinct address is supplied.
func (s *Service) resolveAddresses(ctx context.Context, cmd CreateOrderCommand) (shippingID, billingID string, err error) {
	if cmd.ShippingAddressID != "" {
		addr, err := s.addresses.FindByID(ctx, cmd.ShippingAddressID)
		if err != nil {
			return "", "", err
		}
		if addr.UserID != cmd.BuyerID {
			return "", "", fmt.Errorf("%w: shipping address %s does not belong to buyer", ErrInvalidCommand, addr.ID)
		}
		shippingID = addr.ID
	} else {
		addr, err := s.synthesizeAddress(ctx, cmd.BuyerID)
		if err != nil {
			return "", "", err
		}
		shippingID = addr.ID
	}

	billingID = shippingID
	if cmd.BillingAddressID != "" && cmd.BillingAddressID != shippingID {
		addr, err := s.addresses.FindByID(ctx, cmd.BillingAddressID)
		if err != nil {
			return "", "", err
		}
		if addr.UserID != cmd.BuyerID {
			return "", "", fmt.Errorf("%w: billing address %s does not belong to buyer", ErrInvalidCommand, addr.ID)
		}
		billingID = addr.ID
	}
	return shippingID, billingID, nil
}

func (s *Service) synthesizeAddress(ctx context.Context, buyerID string) (orders.Address, error) {
	p, err := s.profiles.GetBuyerProfile(ctx, buyerID)
	if err != nil {
		return orders.Address{}, err
	}
	addr, err := addressFromProfile(p)
	if err != nil {
		return orders.Address{}, err
	}
	addr.ID = s.newID()
	addr.UserID = buyerID
	addr.CreatedAt = s.now()
	if err := s.addresses.Insert(ctx, addr); err != nil {
		return orders.Address{}, err
	}
	return addr, nil
}

// addressFromProfile maps each profile field to its matching address field.
func addressFromProfile(p Profile) (orders.Address, error) {
	var missing []string
	if strings.TrimSpace(p.FullName) == "" {
		missing = append(missing, "full name")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(p.AddressLine1) == "" {
		missing = append(missing, "address line")
	}
	if len(missing) > 0 {
		return orders.Address{}, fmt.Errorf("%w: missing %s", ErrIncompleteProfile, strings.Join(missing, ", "))
	}

	country := strings.ToUpper(strings.TrimSpace(p.Country))
	if country == "" {
		country = countryFromLocale(p.Locale)
	}
	return orders.Address{
		Kind:       orders.AddressKindShipping,
		FullName:   strings.TrimSpace(p.FullName),
		Phone:      strings.TrimSpace(p.Phone),
		Line1:      strings.TrimSpace(p.AddressLine1),
		Line2:      strings.TrimSpace(p.AddressLine2),
		City:       strings.TrimSpace(p.City),
		Region:     strings.TrimSpace(p.Region),
		PostalCode: strings.TrimSpace(p.PostalCode),
		Country:    country,
	}, nil
}

// countryFromLocale returns the region of a BCP 47 tag such as "en-MW",
// or "" when the tag names no region explicitly.
func countryFromLocale(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return ""
	}
	region, conf := tag.Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}
