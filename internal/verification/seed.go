package verification

import (
	"context"
	"time"
)

func mustTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

// SampleProperties returns the listings the dashboard ships with in memory mode.
func SampleProperties() []*Property {
	return []*Property{
		{
			ID:            1,
			Name:          "Luxury Downtown Apartment",
			Location:      "New York, NY",
			PropertyType:  "Apartment",
			Description:   "A beautiful luxury apartment in the heart of downtown with stunning city views.",
			Photos:        []string{"/placeholder-property.jpg", "/placeholder-property-2.jpg"},
			PricePerNight: 250,
			Rating:        4.8,
			ReviewCount:   24,
			Manager: Manager{
				ID:        "1",
				FirstName: "John",
				LastName:  "Doe",
				Email:     "john.doe@example.com",
				Phone:     "+1-555-0123",
			},
			Status:             ListingPending,
			VerificationStatus: StatusPending,
			SubmittedAt:        mustTime("2024-01-15T10:30:00Z"),
			CreatedAt:          mustTime("2024-01-15T10:30:00Z"),
			VerificationChecks: Checks{},
			Amenities:          []string{"WiFi", "Kitchen", "Air Conditioning", "Parking"},
			Capacity:           4,
			Bedrooms:           2,
			Bathrooms:          2,
		},
		{
			ID:            2,
			Name:          "Cozy Beach House",
			Location:      "Miami, FL",
			PropertyType:  "House",
			Description:   "A charming beach house just steps away from the ocean with private beach access.",
			Photos:        []string{"/placeholder-property.jpg"},
			PricePerNight: 180,
			Rating:        4.6,
			ReviewCount:   18,
			Manager: Manager{
				ID:        "2",
				FirstName: "Jane",
				LastName:  "Smith",
				Email:     "jane.smith@example.com",
				Phone:     "+1-555-0456",
			},
			Status:             ListingPending,
			VerificationStatus: StatusInReview,
			SubmittedAt:        mustTime("2024-01-14T14:20:00Z"),
			CreatedAt:          mustTime("2024-01-14T14:20:00Z"),
			VerificationChecks: Checks{
				"basic_info_property_name":     true,
				"basic_info_property_type":     true,
				"basic_info_location_accurate": true,
				"photos_photo_quality":         true,
				"photos_photo_accuracy":        true,
			},
			Amenities: []string{"WiFi", "Beach Access", "BBQ Grill", "Outdoor Shower"},
			Capacity:  6,
			Bedrooms:  3,
			Bathrooms: 2,
		},
		{
			ID:            3,
			Name:          "Mountain Cabin Retreat",
			Location:      "Aspen, CO",
			PropertyType:  "Cabin",
			Description:   "A rustic mountain cabin perfect for winter sports and summer hiking adventures.",
			Photos:        []string{"/placeholder-property.jpg"},
			PricePerNight: 320,
			Rating:        4.9,
			ReviewCount:   31,
			Manager: Manager{
				ID:        "3",
				FirstName: "Mike",
				LastName:  "Johnson",
				Email:     "mike.johnson@example.com",
				Phone:     "+1-555-0789",
			},
			Status:             ListingPending,
			VerificationStatus: StatusNeedsRevision,
			SubmittedAt:        mustTime("2024-01-13T09:15:00Z"),
			CreatedAt:          mustTime("2024-01-13T09:15:00Z"),
			VerificationChecks: Checks{
				"basic_info_property_name":        true,
				"basic_info_property_type":        true,
				"basic_info_location_accurate":    false,
				"basic_info_description_complete": true,
				"photos_photo_quality":            false,
			},
			Amenities: []string{"Fireplace", "Hot Tub", "Ski Storage", "Mountain Views"},
			Capacity:  8,
			Bedrooms:  4,
			Bathrooms: 3,
		},
		{
			ID:            4,
			Name:          "Urban Loft Studio",
			Location:      "San Francisco, CA",
			PropertyType:  "Apartment",
			Description:   "Modern loft studio in the trendy SOMA district with industrial design elements.",
			Photos:        []string{"/placeholder-property.jpg"},
			PricePerNight: 195,
			Rating:        4.4,
			ReviewCount:   12,
			Manager: Manager{
				ID:        "4",
				FirstName: "Sarah",
				LastName:  "Wilson",
				Email:     "sarah.wilson@example.com",
				Phone:     "+1-555-0321",
			},
			Status:             ListingActive,
			VerificationStatus: StatusVerified,
			SubmittedAt:        mustTime("2024-01-12T16:45:00Z"),
			CreatedAt:          mustTime("2024-01-12T16:45:00Z"),
			VerificationChecks: Checks{
				"basic_info_property_name":        true,
				"basic_info_property_type":        true,
				"basic_info_location_accurate":    true,
				"basic_info_description_complete": true,
				"basic_info_contact_info":         true,
				"photos_photo_quality":            true,
				"photos_photo_accuracy":           true,
				"photos_photo_coverage":           true,
				"amenities_amenities_accurate":    true,
				"amenities_capacity_accurate":     true,
				"pricing_pricing_reasonable":      true,
				"pricing_pricing_transparent":     true,
				"pricing_cancellation_policy":     true,
				"pricing_house_rules":             true,
				"legal_business_license":          true,
				"legal_rental_permit":             true,
				"legal_tax_compliance":            true,
				"legal_insurance":                 true,
				"legal_zoning_compliance":         true,
				"safety_smoke_detectors":          true,
				"safety_carbon_monoxide":          true,
				"safety_fire_extinguisher":        true,
				"safety_emergency_exits":          true,
			},
			Amenities: []string{"WiFi", "Workspace", "Gym Access", "Rooftop Terrace"},
			Capacity:  2,
			Bedrooms:  1,
			Bathrooms: 1,
		},
	}
}

// sequenceSyncer is implemented by stores whose id sequence must be moved
// past explicitly inserted ids.
type sequenceSyncer interface {
	SyncSequence(ctx context.Context) error
}

// Seed inserts the sample listings into repo when it is empty.
func Seed(ctx context.Context, repo Repository) (int, error) {
	existing, err := repo.ListProperties(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	samples := SampleProperties()
	for _, p := range samples {
		if err := repo.CreateProperty(ctx, p); err != nil {
			return 0, err
		}
	}
	if syncer, ok := repo.(sequenceSyncer); ok {
		if err := syncer.SyncSequence(ctx); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}
