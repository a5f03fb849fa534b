package model

import "time"

// College mirrors the `colleges` table. Students and canteens are both
// affiliated with exactly one college.
type College struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

// Canteen mirrors the `canteens` table. A canteen is created when its
// owner completes onboarding and stays hidden from students until the
// platform admin verifies the owner.
type Canteen struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	CollegeID uint64    `json:"college_id"`
	Name      string    `json:"name"`
	IsOpen    bool      `json:"is_open"`
	CreatedAt time.Time `json:"created_at"`
}

// MenuItem mirrors the `menu_items` table. Stock is decremented
// atomically when an order is placed; Available is the owner's manual
// on/off switch independent of stock.
type MenuItem struct {
	ID         uint64 `json:"id"`
	CanteenID  uint64 `json:"canteen_id"`
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
	Stock      int    `json:"stock"`
	Available  bool   `json:"available"`
}
