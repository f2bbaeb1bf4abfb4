package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// memStore is an in-memory booking.Store.  Transactions run concurrently
// and serialize only through the per-room and per-booking locks they take,
// mirroring SELECT ... FOR UPDATE.  mu guards the maps for the duration of
// a single call and is never held across a lock wait.
type memStore struct {
	mu          sync.Mutex
	rooms       map[uint64]model.Room
	users       map[uint64]model.User
	cards       map[uint64]model.CreditCard
	bookings    map[uint64]model.Booking
	referenced  map[uint64]bool
	roomLocks   map[uint64]*sync.Mutex
	rowLocks    map[uint64]*sync.Mutex
	trace       []string
	nextBooking uint64
	nextPayment uint64
	failInsert  error
}

func newMemStore() *memStore {
	return &memStore{
		rooms: map[uint64]model.Room{
			1: {ID: 1, HotelID: 1, Number: "101", Type: model.RoomDouble, PricePerNightCents: 10_000, Capacity: 2},
			2: {ID: 2, HotelID: 1, Number: "102", Type: model.RoomSuite, PricePerNightCents: 25_000, Capacity: 4},
			3: {ID: 3, HotelID: 1, Number: "103", Type: model.RoomSingle, PricePerNightCents: 7_000, Capacity: 1},
		},
		users: map[uint64]model.User{
			1: {ID: 1, Name: "Ana", Email: "ana@example.com", Role: model.RoleGuest},
			2: {ID: 2, Name: "Bruno", Email: "bruno@example.com", Role: model.RoleGuest},
			9: {ID: 9, Name: "Desk", Email: "desk@example.com", Role: model.RoleAdmin},
		},
		cards: map[uint64]model.CreditCard{
			10: {ID: 10, UserID: 1, HolderName: "ANA", Number: "************4242", Brand: "VISA", ExpirationYear: 2030, ExpirationMonth: 1},
			20: {ID: 20, UserID: 2, HolderName: "BRUNO", Number: "************1111", Brand: "MASTERCARD", ExpirationYear: 2030, ExpirationMonth: 2},
		},
		bookings:   map[uint64]model.Booking{},
		referenced: map[uint64]bool{},
		roomLocks:  map[uint64]*sync.Mutex{},
		rowLocks:   map[uint64]*sync.Mutex{},
	}
}

// lockOf returns the mutex for id, creating it on first use.
func (s *memStore) lockOf(locks map[uint64]*sync.Mutex, id uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := locks[id]
	if !ok {
		l = &sync.Mutex{}
		locks[id] = l
	}
	return l
}

// record appends a step to the trace.  The caller holds s.mu.
func (s *memStore) record(format string, args ...any) {
	s.trace = append(s.trace, fmt.Sprintf(format, args...))
}

// takeTrace returns the recorded steps and starts a new trace.
func (s *memStore) takeTrace() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.trace
	s.trace = nil
	return out
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx := &memTx{s: s, rooms: map[uint64]*sync.Mutex{}, rows: map[uint64]*sync.Mutex{}}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *memStore) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: booking %d", booking.ErrNotFound, id)
	}
	return b, nil
}

func (s *memStore) ListBookings(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for id := uint64(1); id <= s.nextBooking; id++ {
		b, ok := s.bookings[id]
		if !ok || (f.UserID != 0 && b.UserID != f.UserID) || (f.RoomID != 0 && b.RoomID != f.RoomID) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *memStore) GetRoom(_ context.Context, id uint64) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return model.Room{}, fmt.Errorf("%w: room %d", booking.ErrNotFound, id)
	}
	return r, nil
}

func (s *memStore) ActiveBookingsByRoom(_ context.Context, roomID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIn(roomID), nil
}

// activeIn lists the unfinished bookings of roomID.  The caller holds s.mu.
func (s *memStore) activeIn(roomID uint64) []model.Booking {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && !b.IsFinished {
			out = append(out, b)
		}
	}
	return out
}

// memTx holds the room and booking locks it took until the transaction
// ends.  Reads of room bookings and writes fail unless the matching lock
// is held, so a service that checks availability before locking errors out
// instead of passing by luck.
type memTx struct {
	s     *memStore
	rooms map[uint64]*sync.Mutex
	rows  map[uint64]*sync.Mutex
	undo  []func()
}

func (t *memTx) release() {
	for _, l := range t.rows {
		l.Unlock()
	}
	for _, l := range t.rooms {
		l.Unlock()
	}
}

func (t *memTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

// save remembers the current state of booking id for rollback.  The caller
// holds s.mu.
func (t *memTx) save(id uint64) {
	prev, existed := t.s.bookings[id]
	t.undo = append(t.undo, func() {
		if existed {
			t.s.bookings[id] = prev
		} else {
			delete(t.s.bookings, id)
		}
	})
}

func (t *memTx) holdsRoom(roomID uint64) error {
	if _, ok := t.rooms[roomID]; !ok {
		return fmt.Errorf("room %d used without its lock", roomID)
	}
	return nil
}

func (t *memTx) holdsRow(id uint64) error {
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("booking %d written without its lock", id)
	}
	return nil
}

func (t *memTx) LockRoom(_ context.Context, id uint64) (model.Room, error) {
	t.s.mu.Lock()
	r, ok := t.s.rooms[id]
	t.s.mu.Unlock()
	if !ok {
		return model.Room{}, fmt.Errorf("%w: room %d", booking.ErrNotFound, id)
	}
	if _, held := t.rooms[id]; !held {
		l := t.s.lockOf(t.s.roomLocks, id)
		l.Lock()
		t.rooms[id] = l
	}
	t.s.mu.Lock()
	t.s.record("lock:%d", id)
	t.s.mu.Unlock()
	return r, nil
}

func (t *memTx) ActiveBookingsByRoom(_ context.Context, roomID uint64) ([]model.Booking, error) {
	if err := t.holdsRoom(roomID); err != nil {
		return nil, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.record("bookings:%d", roomID)
	return t.s.activeIn(roomID), nil
}

func (t *memTx) GetBookingForUpdate(_ context.Context, id uint64) (model.Booking, error) {
	if _, held := t.rows[id]; !held {
		l := t.s.lockOf(t.s.rowLocks, id)
		l.Lock()
		t.rows[id] = l
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: booking %d", booking.ErrNotFound, id)
	}
	t.s.record("booking:%d", id)
	return b, nil
}

func (t *memTx) GetUser(_ context.Context, id uint64) (model.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	u, ok := t.s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: user %d", booking.ErrNotFound, id)
	}
	return u, nil
}

func (t *memTx) GetCreditCard(_ context.Context, id uint64) (model.CreditCard, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	c, ok := t.s.cards[id]
	if !ok {
		return model.CreditCard{}, fmt.Errorf("%w: credit card %d", booking.ErrNotFound, id)
	}
	return c, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	if err := t.holdsRoom(b.RoomID); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.nextBooking++
	t.s.nextPayment++
	b.ID = t.s.nextBooking
	b.Payment.ID = t.s.nextPayment
	b.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t.save(b.ID)
	t.s.bookings[b.ID] = *b
	t.s.record("insert:%d", b.RoomID)
	return t.s.failInsert
}

func (t *memTx) UpdateBooking(_ context.Context, b model.Booking) error {
	if err := t.holdsRow(b.ID); err != nil {
		return err
	}
	if err := t.holdsRoom(b.RoomID); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.save(b.ID)
	b.Payment = t.s.bookings[b.ID].Payment
	t.s.bookings[b.ID] = b
	t.s.record("update:%d", b.ID)
	return nil
}

func (t *memTx) ReplacePayment(_ context.Context, bookingID uint64, p *model.Payment) error {
	if err := t.holdsRow(bookingID); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.save(bookingID)
	t.s.nextPayment++
	p.ID = t.s.nextPayment
	b := t.s.bookings[bookingID]
	b.Payment = *p
	t.s.bookings[bookingID] = b
	t.s.record("payment:%d", bookingID)
	return nil
}

func (t *memTx) DeleteBooking(_ context.Context, id uint64) error {
	if err := t.holdsRow(id); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.referenced[id] {
		return fmt.Errorf("%w: booking %d is referenced", booking.ErrConflict, id)
	}
	t.save(id)
	delete(t.s.bookings, id)
	t.s.record("delete:%d", id)
	return nil
}

func (t *memTx) FinishBooking(_ context.Context, id uint64) error {
	if err := t.holdsRow(id); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.save(id)
	b := t.s.bookings[id]
	if err := t.holdsRoom(b.RoomID); err != nil {
		return err
	}
	b.IsFinished = true
	t.s.bookings[id] = b
	t.s.record("finish:%d", id)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	guests []model.User
	err    error
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, _ model.BookingDetail, guest model.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.guests = append(n.guests, guest)
	return n.err
}

type roomSpy struct {
	mu    sync.Mutex
	rooms []uint64
}

func (r *roomSpy) InvalidateRoom(_ context.Context, roomID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, roomID)
	return nil
}

var (
	guest  = booking.Actor{UserID: 1, Role: model.RoleGuest}
	other  = booking.Actor{UserID: 2, Role: model.RoleGuest}
	admin  = booking.Actor{UserID: 9, Role: model.RoleAdmin}
	today  = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	cashRQ = booking.PaymentRequest{Type: model.PaymentCash}
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	require.NoError(t, err)
	return d
}

func newTestService(store *memStore, n Notifier) *BookingService {
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewBookingService(store, n, log)
	svc.now = func() time.Time { return today }
	return svc
}

func createInput(t *testing.T, roomID uint64, in, out string) CreateBookingInput {
	return CreateBookingInput{
		RoomID:         roomID,
		CheckIn:        day(t, in),
		CheckOut:       day(t, out),
		GuestsQuantity: 1,
		Payment:        cashRQ,
	}
}

func TestCreateSelfBooking(t *testing.T) {
	store := newMemStore()
	n := &recordingNotifier{}
	svc := newTestService(store, n)

	d, err := svc.Create(context.Background(), guest, createInput(t, 1, "2025-07-01", "2025-07-07"), true)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), d.UserID)
	assert.Equal(t, 6, d.Nights)
	assert.Equal(t, int64(60_000), d.TotalPriceCents)
	assert.Equal(t, d.TotalPriceCents, d.Payment.AmountCents)
	assert.NotZero(t, d.Payment.ID)
	require.Len(t, n.guests, 1)
	assert.Equal(t, "ana@example.com", n.guests[0].Email)
}

func TestCreateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*CreateBookingInput)
		wantErr error
	}{
		{"missing room", func(in *CreateBookingInput) { in.RoomID = 99 }, booking.ErrNotFound},
		{"over capacity", func(in *CreateBookingInput) { in.GuestsQuantity = 3 }, booking.ErrBadRequest},
		{"no guests", func(in *CreateBookingInput) { in.GuestsQuantity = 0 }, booking.ErrBadRequest},
		{"reversed dates", func(in *CreateBookingInput) { in.CheckIn, in.CheckOut = in.CheckOut, in.CheckIn }, booking.ErrBadRequest},
		{"same day", func(in *CreateBookingInput) { in.CheckOut = in.CheckIn }, booking.ErrBadRequest},
		{"past check-in", func(in *CreateBookingInput) { in.CheckIn = today.AddDate(0, 0, -1) }, booking.ErrBadRequest},
		{"cash online", func(in *CreateBookingInput) { in.Payment.IsOnline = true }, booking.ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(newMemStore(), nil)
			in := createInput(t, 1, "2025-07-01", "2025-07-07")
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), guest, in, true)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateCapacityBoundary(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	in := createInput(t, 1, "2025-07-01", "2025-07-03")
	in.GuestsQuantity = 2
	_, err := svc.Create(context.Background(), guest, in, true)
	require.NoError(t, err)

	in = createInput(t, 2, "2025-07-01", "2025-07-03")
	in.GuestsQuantity = 5
	_, err = svc.Create(context.Background(), guest, in, true)
	assert.ErrorIs(t, err, booking.ErrBadRequest)
}

func TestCreateAllowsCheckInToday(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	_, err := svc.Create(context.Background(), guest, createInput(t, 1, "2025-06-01", "2025-06-02"), true)
	assert.NoError(t, err)
}

func TestCreateAvailabilityScenario(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, guest, createInput(t, 1, "2025-07-01", "2025-07-07"), true)
	require.NoError(t, err)

	_, err = svc.Create(ctx, other, createInput(t, 1, "2025-07-07", "2025-07-10"), true)
	var ue *booking.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, uint64(1), ue.RoomID)
	assert.Equal(t, day(t, "2025-07-07"), ue.CheckIn)
	assert.Equal(t, day(t, "2025-07-10"), ue.CheckOut)

	_, err = svc.Create(ctx, other, createInput(t, 1, "2025-07-08", "2025-07-10"), true)
	assert.NoError(t, err)

	// another room is unaffected
	_, err = svc.Create(ctx, other, createInput(t, 2, "2025-07-07", "2025-07-10"), true)
	assert.NoError(t, err)
}

func TestCreateOnBehalfOfGuest(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()

	in := createInput(t, 1, "2025-07-01", "2025-07-03")
	in.UserID = 2
	d, err := svc.Create(ctx, admin, in, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), d.UserID)

	in.UserID = 77
	in.CheckIn, in.CheckOut = day(t, "2025-08-01"), day(t, "2025-08-02")
	_, err = svc.Create(ctx, admin, in, false)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	in.UserID = 0
	_, err = svc.Create(ctx, admin, in, false)
	assert.ErrorIs(t, err, booking.ErrBadRequest)

	in.UserID = 2
	_, err = svc.Create(ctx, guest, in, false)
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestCreatePaymentMatrix(t *testing.T) {
	one := 1
	card10, card20 := uint64(10), uint64(20)
	cases := []struct {
		name    string
		actor   booking.Actor
		self    bool
		req     booking.PaymentRequest
		wantErr error
	}{
		{"online card without card id", guest, true, booking.PaymentRequest{Type: model.PaymentCard, IsOnline: true, InstallmentQuantity: &one}, booking.ErrBadRequest},
		{"online card without installments", guest, true, booking.PaymentRequest{Type: model.PaymentCard, IsOnline: true, CreditCardID: &card10}, booking.ErrBadRequest},
		{"card of another user", guest, true, booking.PaymentRequest{Type: model.PaymentCard, IsOnline: true, InstallmentQuantity: &one, CreditCardID: &card20}, booking.ErrForbidden},
		{"staff online card", admin, false, booking.PaymentRequest{Type: model.PaymentCard, IsOnline: true, InstallmentQuantity: &one, CreditCardID: &card10}, booking.ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			svc := newTestService(store, nil)
			in := createInput(t, 1, "2025-07-01", "2025-07-03")
			in.UserID = 1
			in.Payment = tc.req
			_, err := svc.Create(context.Background(), tc.actor, in, tc.self)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, store.bookings)
		})
	}
}

func TestCreateOnlineCardSnapshot(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	three, card := 3, uint64(10)
	in := createInput(t, 1, "2025-07-01", "2025-07-03")
	in.Payment = booking.PaymentRequest{Type: model.PaymentCard, IsOnline: true, InstallmentQuantity: &three, CreditCardID: &card}

	d, err := svc.Create(context.Background(), guest, in, true)
	require.NoError(t, err)
	require.NotNil(t, d.Payment.Card)
	assert.Equal(t, "4242", d.Payment.Card.LastFourDigits)
	assert.Equal(t, 3, d.Payment.Card.InstallmentQuantity)
	assert.Equal(t, int64(20_000), d.Payment.AmountCents)
}

func TestCreateRollsBackOnPersistenceFailure(t *testing.T) {
	store := newMemStore()
	store.failInsert = errors.New("disk full")
	n := &recordingNotifier{}
	svc := newTestService(store, n)

	_, err := svc.Create(context.Background(), guest, createInput(t, 1, "2025-07-01", "2025-07-03"), true)
	require.Error(t, err)
	assert.Empty(t, store.bookings)
	assert.Empty(t, n.guests)
}

func TestCreateNotifierFailureKeepsBooking(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &recordingNotifier{err: errors.New("broker down")})

	_, err := svc.Create(context.Background(), guest, createInput(t, 1, "2025-07-01", "2025-07-03"), true)
	require.NoError(t, err)
	assert.Len(t, store.bookings, 1)
}

func TestConcurrentCreatesDoNotDoubleBook(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)

	const workers = 16
	in := createInput(t, 1, "2025-07-01", "2025-07-05")
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		ok, blocked int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), guest, in, true)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, booking.ErrUnavailable) {
				blocked++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, blocked)
	assert.Len(t, store.bookings, 1)
}

func TestWritesReadRoomBookingsUnderTheRoomLock(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, guest, createInput(t, 1, "2025-07-01", "2025-07-03"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"lock:1", "bookings:1", "insert:1"}, store.takeTrace())

	_, err = svc.Update(ctx, admin, b.ID, UpdateBookingInput{RoomID: ptr(uint64(2))}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"booking:1", "lock:2", "bookings:2", "update:1", "payment:1"}, store.takeTrace())

	_, err = svc.UpdatePayment(ctx, guest, b.ID, booking.PaymentRequest{Type: model.PaymentBankSlip}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"booking:1", "lock:2", "payment:1"}, store.takeTrace())

	_, err = svc.Finish(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"booking:1", "lock:2", "finish:1"}, store.takeTrace())
}

func TestRoomBookingsReadWithoutLockFails(t *testing.T) {
	store := newMemStore()
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		_, err := tx.ActiveBookingsByRoom(ctx, 1)
		return err
	})
	assert.ErrorContains(t, err, "without its lock")
}

func TestRoomLockBlocksOnlyItsRoom(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	locked, release := make(chan struct{}), make(chan struct{})
	holder := make(chan error, 1)
	go func() {
		holder <- store.WithinTx(ctx, func(ctx context.Context, tx booking.Tx) error {
			if _, err := tx.LockRoom(ctx, 1); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	otherRoom := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, other, createInput(t, 2, "2025-07-01", "2025-07-03"), true)
		otherRoom <- err
	}()
	select {
	case err := <-otherRoom:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("booking on a free room waited for another room's lock")
	}

	sameRoom := make(chan error, 1)
	go func() {
		_, err := svc.Create(ctx, guest, createInput(t, 1, "2025-07-01", "2025-07-03"), true)
		sameRoom <- err
	}()
	select {
	case <-sameRoom:
		t.Fatal("booking on a locked room finished before the lock was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-holder)
	require.NoError(t, <-sameRoom)
}

func seedBooking(t *testing.T, svc *BookingService, actor booking.Actor, roomID uint64, in, out string) model.BookingDetail {
	t.Helper()
	d, err := svc.Create(context.Background(), actor, createInput(t, roomID, in, out), true)
	require.NoError(t, err)
	return d
}

func ptr[T any](v T) *T { return &v }

func TestUpdateOverlappingOnlyItself(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-07")

	d, err := svc.Update(context.Background(), guest, b.ID, UpdateBookingInput{
		CheckIn:  ptr(day(t, "2025-07-02")),
		CheckOut: ptr(day(t, "2025-07-09")),
	}, true)
	require.NoError(t, err)

	assert.Equal(t, "2025-07-02", d.CheckIn)
	assert.Equal(t, int64(70_000), d.TotalPriceCents)
	assert.Equal(t, d.TotalPriceCents, d.Payment.AmountCents)
	assert.Equal(t, model.PaymentCash, d.Payment.Type)
	assert.NotEqual(t, b.Payment.ID, d.Payment.ID)
}

func TestUpdateRejections(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-07")
	seedBooking(t, svc, other, 2, "2025-07-01", "2025-07-07")

	_, err := svc.Update(ctx, other, b.ID, UpdateBookingInput{GuestsQuantity: ptr(2)}, true)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = svc.Update(ctx, guest, 404, UpdateBookingInput{}, true)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = svc.Update(ctx, guest, b.ID, UpdateBookingInput{RoomID: ptr(uint64(2))}, true)
	assert.ErrorIs(t, err, booking.ErrUnavailable)

	_, err = svc.Update(ctx, guest, b.ID, UpdateBookingInput{RoomID: ptr(uint64(99))}, true)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = svc.Update(ctx, guest, b.ID, UpdateBookingInput{RoomID: ptr(uint64(3)), GuestsQuantity: ptr(2)}, true)
	assert.ErrorIs(t, err, booking.ErrBadRequest)

	_, err = svc.Update(ctx, guest, b.ID, UpdateBookingInput{CheckOut: ptr(day(t, "2025-07-01"))}, true)
	assert.ErrorIs(t, err, booking.ErrBadRequest)

	_, err = svc.Update(ctx, guest, b.ID, UpdateBookingInput{CheckIn: ptr(day(t, "2025-05-01"))}, true)
	assert.ErrorIs(t, err, booking.ErrBadRequest)

	_, err = svc.Update(ctx, guest, b.ID, UpdateBookingInput{GuestsQuantity: ptr(2)}, false)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	assert.Equal(t, day(t, "2025-07-01"), store.bookings[b.ID].CheckIn)
	assert.Equal(t, uint64(1), store.bookings[b.ID].RoomID)
}

func TestUpdateMovesRoomAndReprices(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")

	d, err := svc.Update(context.Background(), admin, b.ID, UpdateBookingInput{RoomID: ptr(uint64(2))}, false)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), d.Room.ID)
	assert.Equal(t, int64(50_000), d.TotalPriceCents)
	assert.Equal(t, int64(50_000), d.Payment.AmountCents)

	// the old room is free again
	_, err = svc.Create(context.Background(), other, createInput(t, 1, "2025-07-01", "2025-07-03"), true)
	assert.NoError(t, err)
}

func TestUpdateGuestsOnlyKeepsPayment(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")

	d, err := svc.Update(context.Background(), guest, b.ID, UpdateBookingInput{GuestsQuantity: ptr(2)}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, d.GuestsQuantity)
	assert.Equal(t, b.Payment.ID, d.Payment.ID)
}

func TestUpdateKeepsPastCheckInWhenUnchanged(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	b := seedBooking(t, svc, guest, 1, "2025-06-01", "2025-06-05")
	svc.now = func() time.Time { return today.AddDate(0, 0, 2) }

	d, err := svc.Update(context.Background(), guest, b.ID, UpdateBookingInput{CheckOut: ptr(day(t, "2025-06-06"))}, true)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Nights)
}

func TestUpdateFinishedBookingRejected(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")
	_, err := svc.Finish(context.Background(), admin, b.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), guest, b.ID, UpdateBookingInput{GuestsQuantity: ptr(2)}, true)
	assert.ErrorIs(t, err, booking.ErrBadRequest)
}

func TestUpdatePayment(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()
	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")

	d, err := svc.UpdatePayment(ctx, guest, b.ID, booking.PaymentRequest{Type: model.PaymentBankSlip}, true)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentBankSlip, d.Payment.Type)
	require.NotNil(t, d.Payment.BankSlip)
	assert.Equal(t, day(t, "2025-07-01"), d.Payment.BankSlip.ExpirationDate)
	assert.Equal(t, int64(20_000), d.Payment.AmountCents)
	assert.Equal(t, "2025-07-01", d.CheckIn)

	_, err = svc.UpdatePayment(ctx, other, b.ID, cashRQ, true)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	_, err = svc.UpdatePayment(ctx, guest, b.ID, booking.PaymentRequest{Type: model.PaymentPix, IsOnline: true}, true)
	assert.ErrorIs(t, err, booking.ErrBadRequest)

	got, err := svc.FindByID(ctx, guest, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentBankSlip, got.Payment.Type)
}

func TestDelete(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	a := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")
	b := seedBooking(t, svc, guest, 1, "2025-07-10", "2025-07-12")
	c := seedBooking(t, svc, guest, 2, "2025-07-10", "2025-07-12")
	store.referenced[c.ID] = true

	assert.ErrorIs(t, svc.Delete(ctx, other, a.ID), booking.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, guest, a.ID))
	require.NoError(t, svc.Delete(ctx, admin, b.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, c.ID), booking.ErrConflict)
	assert.ErrorIs(t, svc.Delete(ctx, guest, a.ID), booking.ErrNotFound)

	assert.Len(t, store.bookings, 1)
}

func TestFinishFreesRoom(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()
	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-07")

	_, err := svc.Finish(ctx, guest, b.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	d, err := svc.Finish(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.True(t, d.IsFinished)

	_, err = svc.Finish(ctx, admin, b.ID)
	require.NoError(t, err)

	dates, err := svc.UnavailableDates(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, dates)

	_, err = svc.Create(ctx, other, createInput(t, 1, "2025-07-02", "2025-07-04"), true)
	assert.NoError(t, err)
}

func TestReadsAreGated(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()
	mine := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")
	seedBooking(t, svc, other, 2, "2025-07-01", "2025-07-03")
	seedBooking(t, svc, other, 1, "2025-07-10", "2025-07-12")

	_, err := svc.FindByID(ctx, other, mine.ID, true)
	assert.ErrorIs(t, err, booking.ErrForbidden)
	_, err = svc.FindByID(ctx, guest, mine.ID, false)
	assert.ErrorIs(t, err, booking.ErrForbidden)
	got, err := svc.FindByID(ctx, admin, mine.ID, false)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	list, err := svc.FindAllByUser(ctx, guest, 2, true, model.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = svc.FindAllByUser(ctx, guest, 2, false, model.BookingFilter{})
	assert.ErrorIs(t, err, booking.ErrForbidden)
	list, err = svc.FindAllByUser(ctx, admin, 2, false, model.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.FindAllByRoom(ctx, admin, 1, model.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	_, err = svc.FindAllByRoom(ctx, admin, 99, model.BookingFilter{})
	assert.ErrorIs(t, err, booking.ErrNotFound)
	_, err = svc.FindAllByRoom(ctx, guest, 1, model.BookingFilter{})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	list, err = svc.FindAll(ctx, admin, model.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	_, err = svc.FindAll(ctx, other, model.BookingFilter{})
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestUnavailableDates(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")

	dates, err := svc.UnavailableDates(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(t, "2025-07-01"), day(t, "2025-07-02"), day(t, "2025-07-03")}, dates)

	_, err = svc.UnavailableDates(context.Background(), 99)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestMutationsInvalidateRoomCache(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	spy := &roomSpy{}
	svc.UseRoomCache(spy)
	ctx := context.Background()

	b := seedBooking(t, svc, guest, 1, "2025-07-01", "2025-07-03")
	_, err := svc.Update(ctx, guest, b.ID, UpdateBookingInput{RoomID: ptr(uint64(2))}, true)
	require.NoError(t, err)
	_, err = svc.Finish(ctx, admin, b.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, b.ID))

	assert.Equal(t, []uint64{1, 1, 2, 2, 2}, spy.rooms)
}
