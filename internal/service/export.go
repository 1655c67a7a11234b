package service

import (
	"context"
	"fmt"

	"github.com/pkordes/trek-booking/internal/domain"
)

// exportPageSize is how many bookings Export reads per query.
const exportPageSize = 100

// Export returns every booking, newest first, for the admin download.
// It walks the paged listing so no single query is unbounded.
func (s *BookingService) Export(ctx context.Context) ([]domain.Booking, error) {
	all := []domain.Booking{}
	for page := 1; ; page++ {
		p := domain.PaginationParams{Page: page, Limit: exportPageSize}
		items, total, err := s.bookings.ListPaged(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("service.BookingService.Export: page %d: %w", page, err)
		}
		all = append(all, items...)
		if len(items) < exportPageSize || int64(len(all)) >= total {
			return all, nil
		}
	}
}
