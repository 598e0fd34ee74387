package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/internal/domain/catalog"
	"github.com/travel-golobe/service-booking/internal/domain/inventory"
	"github.com/travel-golobe/service-booking/internal/domain/user"
	"github.com/travel-golobe/service-booking/pkg/domain"
	"github.com/travel-golobe/service-booking/pkg/events"
	"github.com/travel-golobe/service-booking/pkg/kafka"
	"github.com/travel-golobe/service-booking/pkg/metrics"
)

const eventSource = "service-booking"

// BookingOptions tunes the booking lifecycle.
type BookingOptions struct {
	Currency string
	Location *time.Location
	// ReleaseOnCancel returns a cancelled booking's capacity to inventory.
	ReleaseOnCancel bool
	// SideEffectTimeout bounds each detached notification and audit call.
	SideEffectTimeout time.Duration
}

// DefaultBookingOptions returns the production defaults.
func DefaultBookingOptions() BookingOptions {
	return BookingOptions{
		Currency:          domain.CurrencyVND,
		Location:          time.UTC,
		ReleaseOnCancel:   true,
		SideEffectTimeout: 30 * time.Second,
	}
}

// BookingDeps are the collaborators of BookingService. Audit and Partners are optional.
type BookingDeps struct {
	Tx        bookingDomain.TxManager
	Bookings  bookingDomain.BookingRepository
	Invoices  bookingDomain.InvoiceRepository
	Catalog   catalog.Catalog
	Pricing   bookingDomain.PricingStrategy
	Partners  PartnerSelector
	Users     user.Directory
	Notifier  NotificationGateway
	Audit     AuditRecorder
	Publisher EventPublisher
	Metrics   *metrics.BookingMetrics
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	tx        bookingDomain.TxManager
	bookings  bookingDomain.BookingRepository
	invoices  bookingDomain.InvoiceRepository
	catalog   catalog.Catalog
	pricing   bookingDomain.PricingStrategy
	partners  PartnerSelector
	users     user.Directory
	notifier  NotificationGateway
	audit     AuditRecorder
	publisher EventPublisher
	metrics   *metrics.BookingMetrics
	opts      BookingOptions
	logger    *zap.Logger

	background sync.WaitGroup
}

// NewBookingService creates a new BookingService.
func NewBookingService(deps BookingDeps, opts BookingOptions, logger *zap.Logger) *BookingService {
	if deps.Partners == nil {
		deps.Partners = NewRandomPartnerSelector(deps.Catalog)
	}
	if deps.Audit == nil {
		deps.Audit = NopAuditRecorder{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Currency == "" {
		opts.Currency = domain.CurrencyVND
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = 30 * time.Second
	}
	return &BookingService{
		tx:        deps.Tx,
		bookings:  deps.Bookings,
		invoices:  deps.Invoices,
		catalog:   deps.Catalog,
		pricing:   deps.Pricing,
		partners:  deps.Partners,
		users:     deps.Users,
		notifier:  deps.Notifier,
		audit:     deps.Audit,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		opts:      opts,
		logger:    logger,
	}
}

// BookFlight reserves seats on a flight and creates a PENDING booking.
// A named ticket's price overrides the flight's base price.
func (s *BookingService) BookFlight(ctx context.Context, userID uuid.UUID, req BookFlightRequest) (*BookingDTO, error) {
	if err := inventory.ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	flightDate, err := bookingDomain.ParseDate(req.FlightDate, s.opts.Location)
	if err != nil {
		return nil, err
	}

	flight, err := s.catalog.GetFlight(ctx, req.FlightID)
	if err != nil {
		return nil, err
	}
	unitPrice := flight.PriceCents
	if req.TicketID != nil {
		ticket, ok := flight.FindTicket(*req.TicketID)
		if !ok {
			return nil, domain.NewNotFoundError("Ticket", req.TicketID.String())
		}
		unitPrice = ticket.PriceCents
	}

	total, err := s.pricing.FlightPrice(unitPrice, req.Quantity, flightDate)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(userID, inventory.KindFlight, bookingDomain.Legs{
		FlightID:       &flight.ID,
		TicketID:       req.TicketID,
		FlightQuantity: req.Quantity,
		FlightDate:     &flightDate,
	}, total, s.opts.Currency)
	if err != nil {
		return nil, err
	}

	return s.place(ctx, bk)
}

// BookHotel reserves rooms in a hotel for a stay and creates a PENDING booking.
func (s *BookingService) BookHotel(ctx context.Context, userID uuid.UUID, req BookHotelRequest) (*BookingDTO, error) {
	if err := inventory.ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	checkIn, err := bookingDomain.ParseDate(req.CheckInDate, s.opts.Location)
	if err != nil {
		return nil, err
	}
	checkOut, err := bookingDomain.ParseDate(req.CheckOutDate, s.opts.Location)
	if err != nil {
		return nil, err
	}

	hotel, err := s.catalog.GetHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}
	room, err := s.catalog.GetRoom(ctx, hotel.ID, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.Available {
		return nil, domain.NewConflictError(fmt.Sprintf("room %s is not available", room.ID))
	}

	total, err := s.pricing.HotelPrice(room.PricePerDayCents, req.Quantity, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(userID, inventory.KindHotel, bookingDomain.Legs{
		HotelID:       &hotel.ID,
		RoomID:        &room.ID,
		HotelQuantity: req.Quantity,
		CheckInDate:   &checkIn,
		CheckOutDate:  &checkOut,
	}, total, s.opts.Currency)
	if err != nil {
		return nil, err
	}

	return s.place(ctx, bk)
}

// BookRoadVehicle reserves seats on a road vehicle and creates a PENDING booking.
func (s *BookingService) BookRoadVehicle(ctx context.Context, userID uuid.UUID, req BookRoadVehicleRequest) (*BookingDTO, error) {
	if err := inventory.ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}

	vehicle, err := s.catalog.GetRoadVehicle(ctx, req.RoadVehicleID)
	if err != nil {
		return nil, err
	}

	total, err := s.pricing.RoadVehiclePrice(vehicle.PriceCents, req.Quantity)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(userID, inventory.KindRoadVehicle, bookingDomain.Legs{
		RoadVehicleID:       &vehicle.ID,
		RoadVehicleQuantity: req.Quantity,
	}, total, s.opts.Currency)
	if err != nil {
		return nil, err
	}

	return s.place(ctx, bk)
}

// BookTour books a tour. By default the tour is bundled with a flight and a
// hotel room picked by the partner selector; all three legs are reserved in
// one transaction, so either every leg holds capacity or none does.
func (s *BookingService) BookTour(ctx context.Context, userID uuid.UUID, req BookTourRequest) (*BookingDTO, error) {
	tourQty, err := defaultQuantity(req.TourQuantity)
	if err != nil {
		return nil, err
	}

	tour, err := s.catalog.GetTour(ctx, req.TourID)
	if err != nil {
		return nil, err
	}
	tourPrice, err := s.pricing.TourPrice(tour.AdultPriceCents, tourQty)
	if err != nil {
		return nil, err
	}

	legs := bookingDomain.Legs{TourID: &tour.ID, TourQuantity: tourQty}
	total := tourPrice

	if !req.TourOnly {
		flightQty, err := defaultQuantity(req.FlightQuantity)
		if err != nil {
			return nil, err
		}
		hotelQty, err := defaultQuantity(req.HotelQuantity)
		if err != nil {
			return nil, err
		}

		flight, err := s.partners.SelectFlight(ctx, tour)
		if err != nil {
			return nil, err
		}
		hotel, err := s.partners.SelectHotel(ctx, tour)
		if err != nil {
			return nil, err
		}
		room, ok := hotel.CheapestAvailableRoom()
		if !ok {
			return nil, domain.NewConflictError(fmt.Sprintf("hotel %s has no available rooms", hotel.ID))
		}

		flightDate := tour.StartDate.In(s.opts.Location)
		checkIn := flightDate
		checkOut := checkIn.AddDate(0, 0, max(tour.DurationDays, 1))

		flightPrice, err := s.pricing.FlightPrice(flight.PriceCents, flightQty, flightDate)
		if err != nil {
			return nil, err
		}
		hotelPrice, err := s.pricing.HotelPrice(room.PricePerDayCents, hotelQty, checkIn, checkOut)
		if err != nil {
			return nil, err
		}

		legs.FlightID = &flight.ID
		legs.FlightQuantity = flightQty
		legs.FlightDate = &flightDate
		legs.HotelID = &hotel.ID
		legs.RoomID = &room.ID
		legs.HotelQuantity = hotelQty
		legs.CheckInDate = &checkIn
		legs.CheckOutDate = &checkOut
		total, err = s.pricing.BundlePrice(tourPrice, flightPrice, hotelPrice)
		if err != nil {
			return nil, err
		}
	}

	bk, err := bookingDomain.NewBooking(userID, inventory.KindTour, legs, total, s.opts.Currency)
	if err != nil {
		return nil, err
	}

	return s.place(ctx, bk)
}

// ConfirmBooking confirms a PENDING booking owned by userID, writes its invoice
// and queues a confirmation email. Confirming an already confirmed booking
// returns it unchanged.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, userID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsOwnedBy(userID) {
		return nil, domain.NewUnauthorizedError("booking does not belong to this user")
	}
	if bk.Status() == bookingDomain.StatusConfirmed {
		return s.withInvoices(ctx, bk)
	}

	owner, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		invoice *bookingDomain.InvoiceDetail
		from    bookingDomain.BookingStatus
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		current, err := uow.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		from = current.Status()
		changed, err := current.Confirm()
		if err != nil || !changed {
			bk = current
			return err
		}

		current.IncrementVersion()
		if err := uow.Bookings().Update(ctx, current); err != nil {
			return err
		}
		invoice = bookingDomain.NewInvoiceDetail(current)
		if err := uow.Invoices().Save(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		bk = current
		return nil
	})
	if domain.IsConflict(err) {
		// A concurrent confirm won the version race.
		if latest, findErr := s.bookings.FindByID(ctx, bookingID); findErr == nil && latest.Status() == bookingDomain.StatusConfirmed {
			return s.withInvoices(ctx, latest)
		}
	}
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		// Another request confirmed it between our read and the transaction.
		return s.withInvoices(ctx, bk)
	}

	s.metrics.BookingsConfirmed.Inc()
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingConfirmed, bk.ID().String(), events.BookingConfirmedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		InvoiceID:     invoice.ID,
		TotalAmount:   bk.TotalAmountCents(),
		Currency:      bk.Currency(),
		OccurredAt:    time.Now().UTC(),
	})
	s.recordAudit(ctx, bk, AuditConfirmed, from, &userID)

	snapshot := toSnapshot(bk, owner.Name)
	s.goBackground(ctx, "send booking confirmation", func(ctx context.Context) error {
		return s.notifier.SendBookingConfirmation(ctx, owner.Email, snapshot)
	})

	s.logger.Info("booking confirmed",
		zap.String("booking_id", bk.ID().String()),
		zap.String("invoice_id", invoice.ID.String()),
	)

	result := toBookingDTO(bk, s.opts.Location)
	result.Invoices = []InvoiceDTO{toInvoiceDTO(invoice)}
	return &result, nil
}

// CancelBooking cancels a booking owned by userID. Unless disabled, every
// reserved leg is released in the same transaction.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID) (*BookingDTO, error) {
	var (
		bk       *bookingDomain.Booking
		from     bookingDomain.BookingStatus
		released bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		current, err := uow.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !current.IsOwnedBy(userID) {
			return domain.NewUnauthorizedError("booking does not belong to this user")
		}

		from = current.Status()
		if err := current.Cancel(); err != nil {
			return err
		}
		current.IncrementVersion()
		if err := uow.Bookings().Update(ctx, current); err != nil {
			return err
		}

		if s.opts.ReleaseOnCancel && from.HoldsCapacity() {
			if err := releaseAll(ctx, uow.Ledger(), current); err != nil {
				return err
			}
			released = true
		}
		bk = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BookingsCancelled.WithLabelValues(bk.Kind().String()).Inc()
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCancelled, bk.ID().String(), events.BookingCancelledEvent{
		BookingID:        bk.ID(),
		BookingNumber:    bk.BookingNumber(),
		CancelledBy:      userID,
		CapacityReleased: released,
		OccurredAt:       time.Now().UTC(),
	})
	s.recordAudit(ctx, bk, AuditCancelled, from, &userID)

	result := toBookingDTO(bk, s.opts.Location)
	return &result, nil
}

// GetBooking retrieves a booking with its invoices. Only the owner or an admin may read it.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !bk.IsOwnedBy(userID) {
		return nil, domain.NewUnauthorizedError("booking does not belong to this user")
	}
	return s.withInvoices(ctx, bk)
}

// ListUserBookings retrieves paginated bookings for a specific user.
func (s *BookingService) ListUserBookings(ctx context.Context, userID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.bookings.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	result := domain.NewPaginatedResult(s.toDTOs(bookings), total, page, limit)
	return &result, nil
}

// --- Admin methods ---

// ListAllBookings returns a filtered, paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, q ListBookingsQuery) ([]BookingDTO, int64, error) {
	filter := bookingDomain.ListFilter{Search: q.Search}
	if q.Kind != "" {
		kind, err := inventory.ParseResourceKind(q.Kind)
		if err != nil {
			return nil, 0, err
		}
		filter.Kind = kind
	}
	if q.Status != "" {
		status, err := bookingDomain.ParseBookingStatus(q.Status)
		if err != nil {
			return nil, 0, domain.NewValidationError(err.Error())
		}
		filter.Status = status
	}

	bookings, total, err := s.bookings.ListAll(ctx, filter, q.Page, q.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.toDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// Drain blocks until detached notification and audit calls have finished.
func (s *BookingService) Drain() {
	s.background.Wait()
}

// --- Helpers ---

// place reserves every leg of bk and inserts it, all in one transaction.
func (s *BookingService) place(ctx context.Context, bk *bookingDomain.Booking) (*BookingDTO, error) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, uow bookingDomain.UnitOfWork) error {
		for _, r := range bk.Legs().Reservations() {
			if err := uow.Ledger().Reserve(ctx, r.Ref, r.Quantity); err != nil {
				if domain.IsConflict(err) {
					s.metrics.ReserveConflicts.WithLabelValues(r.Ref.Kind.String()).Inc()
				}
				return err
			}
		}
		return uow.Bookings().Save(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues(bk.Kind().String()).Inc()
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingCreated, bk.ID().String(), events.BookingCreatedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		Kind:          bk.Kind().String(),
		Bundle:        bk.IsBundle(),
		TotalAmount:   bk.TotalAmountCents(),
		Currency:      bk.Currency(),
		OccurredAt:    bk.CreatedAt(),
	})
	s.recordAudit(ctx, bk, AuditCreated, "", nil)

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("kind", bk.Kind().String()),
		zap.Int64("total_amount", bk.TotalAmountCents()),
	)

	result := toBookingDTO(bk, s.opts.Location)
	return &result, nil
}

func (s *BookingService) withInvoices(ctx context.Context, bk *bookingDomain.Booking) (*BookingDTO, error) {
	invoices, err := s.invoices.FindByBookingID(ctx, bk.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	result := toBookingDTO(bk, s.opts.Location)
	for _, inv := range invoices {
		result.Invoices = append(result.Invoices, toInvoiceDTO(inv))
	}
	return &result, nil
}

func (s *BookingService) toDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk, s.opts.Location)
	}
	return dtos
}

func (s *BookingService) recordAudit(ctx context.Context, bk *bookingDomain.Booking, action AuditAction, from bookingDomain.BookingStatus, actor *uuid.UUID) {
	entry := newAuditEntry(bk, action, from, actor)
	s.goBackground(ctx, "record booking audit", func(ctx context.Context) error {
		return s.audit.Record(ctx, entry)
	})
}

// goBackground runs fn detached from the request's cancellation, bounded by
// the side-effect timeout. Failures are logged only.
func (s *BookingService) goBackground(ctx context.Context, what string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(detached, s.opts.SideEffectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Error("failed to "+what, zap.Error(err))
		}
	}()
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	publishEvent(ctx, s.publisher, s.logger, topic, eventType, key, data)
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, topic, eventType, key string, data interface{}) {
	if publisher == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = key

	if err := publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func newAuditEntry(bk *bookingDomain.Booking, action AuditAction, from bookingDomain.BookingStatus, actor *uuid.UUID) AuditEntry {
	return AuditEntry{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		UserID:        bk.UserID(),
		ActorID:       actor,
		Kind:          bk.Kind().String(),
		Action:        action,
		FromStatus:    from.String(),
		ToStatus:      bk.Status().String(),
		TotalAmount:   bk.TotalAmountCents(),
		Currency:      bk.Currency(),
		OccurredAt:    bk.UpdatedAt(),
	}
}

// releaseAll returns every leg's capacity through ledger.
func releaseAll(ctx context.Context, ledger inventory.Ledger, bk *bookingDomain.Booking) error {
	for _, r := range bk.Legs().Reservations() {
		if err := ledger.Release(ctx, r.Ref, r.Quantity); err != nil {
			return fmt.Errorf("failed to release %s: %w", r.Ref, err)
		}
	}
	return nil
}

func defaultQuantity(q int) (int, error) {
	if q == 0 {
		return 1, nil
	}
	if err := inventory.ValidateQuantity(q); err != nil {
		return 0, err
	}
	return q, nil
}
