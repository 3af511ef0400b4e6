// Package memory is an in-process implementation of the repository
// contracts. Transactions are serialized and work on a copy of the state
// that replaces the committed state only when fn succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"
	"staybook-backend/internal/utils"
)

type state struct {
	rooms        map[string]domain.Room
	reservations map[int64]domain.Reservation
	guests       map[string]domain.Guest
	slots        map[string]domain.Slot
	audit        []domain.AuditEntry
	sequences    map[string]int64
	nextID       int64
}

func newState() *state {
	return &state{
		rooms:        make(map[string]domain.Room),
		reservations: make(map[int64]domain.Reservation),
		guests:       make(map[string]domain.Guest),
		slots:        make(map[string]domain.Slot),
		sequences:    make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		rooms:        make(map[string]domain.Room, len(s.rooms)),
		reservations: make(map[int64]domain.Reservation, len(s.reservations)),
		guests:       make(map[string]domain.Guest, len(s.guests)),
		slots:        make(map[string]domain.Slot, len(s.slots)),
		audit:        append([]domain.AuditEntry(nil), s.audit...),
		sequences:    make(map[string]int64, len(s.sequences)),
		nextID:       s.nextID,
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.guests {
		c.guests[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store implements repository.TxManager.
type Store struct {
	mu      sync.Mutex
	current *state
	faults  map[string]error
}

func NewStore() *Store {
	return &Store{current: newState(), faults: make(map[string]error)}
}

// Fault operations understood by InjectFault.
const (
	FaultAuditAppend       = "audit.append"
	FaultReservationCreate = "reservation.create"
	FaultSlotCreate        = "slot.create"
	FaultSequenceNext      = "sequence.next"
)

// InjectFault makes the named operation fail with err until cleared with a
// nil err.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// EnableSequence provisions a named sequence starting after start.
func (s *Store) EnableSequence(name string, start int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.sequences[name] = start
}

func (s *Store) AddRoom(room domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.rooms[room.ID] = room
}

// AddReservation commits a reservation directly, assigning an id.
func (s *Store) AddReservation(res domain.Reservation) domain.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.nextID++
	res.ID = s.current.nextID
	s.current.reservations[res.ID] = res
	return res
}

// Reservations returns every committed reservation ordered by id.
func (s *Store) Reservations() []domain.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Reservation, 0, len(s.current.reservations))
	for _, r := range s.current.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Guests() []domain.Guest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Guest, 0, len(s.current.guests))
	for _, g := range s.current.guests {
		out = append(out, g)
	}
	return out
}

func (s *Store) Slots() []domain.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Slot, 0, len(s.current.slots))
	for _, sl := range s.current.slots {
		out = append(out, sl)
	}
	return out
}

func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.current.audit...)
}

func (s *Store) WithinTx(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return repository.ErrTimeout
	}

	work := &unitOfWork{store: s, st: s.current.clone(), savepoints: make(map[string]*state)}
	if err := fn(ctx, work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return repository.ErrTimeout
	}
	if !opts.ReadOnly {
		s.current = work.st
	}
	return nil
}

type unitOfWork struct {
	store      *Store
	st         *state
	savepoints map[string]*state
}

func (u *unitOfWork) fault(op string) error {
	return u.store.faults[op]
}

func (u *unitOfWork) Rooms() repository.RoomRepository               { return roomRepo{u} }
func (u *unitOfWork) Reservations() repository.ReservationRepository { return reservationRepo{u} }
func (u *unitOfWork) Sequences() repository.SequenceRepository       { return sequenceRepo{u} }
func (u *unitOfWork) Guests() repository.GuestRepository             { return guestRepo{u} }
func (u *unitOfWork) Slots() repository.SlotRepository               { return slotRepo{u} }
func (u *unitOfWork) Audit() repository.AuditRepository              { return auditRepo{u} }

func (u *unitOfWork) Savepoint(_ context.Context, name string) error {
	u.savepoints[name] = u.st.clone()
	return nil
}

func (u *unitOfWork) RollbackTo(_ context.Context, name string) error {
	sp, ok := u.savepoints[name]
	if !ok {
		return repository.ErrNotFound
	}
	u.st = sp.clone()
	return nil
}

func (u *unitOfWork) Release(_ context.Context, name string) error {
	delete(u.savepoints, name)
	return nil
}

type roomRepo struct{ u *unitOfWork }

func (r roomRepo) GetByID(_ context.Context, id string) (*domain.Room, error) {
	room, ok := r.u.st.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &room, nil
}

func (r roomRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Room, error) {
	return r.GetByID(ctx, id)
}

func (r roomRepo) List(_ context.Context) ([]domain.Room, error) {
	out := make([]domain.Room, 0, len(r.u.st.rooms))
	for _, room := range r.u.st.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r roomRepo) SyncOccupancy(_ context.Context) (int64, error) {
	occupied := make(map[string]bool)
	for _, res := range r.u.st.reservations {
		if res.Status == domain.ReservationStatusCheckedIn {
			occupied[res.RoomID] = true
		}
	}
	var changed int64
	for id, room := range r.u.st.rooms {
		if room.OutOfService() {
			continue
		}
		want := domain.RoomStatusAvailable
		if occupied[id] {
			want = domain.RoomStatusOccupied
		}
		if room.Status != want {
			room.Status = want
			room.UpdatedOn = time.Now()
			r.u.st.rooms[id] = room
			changed++
		}
	}
	return changed, nil
}

type reservationRepo struct{ u *unitOfWork }

func (r reservationRepo) Create(_ context.Context, res *domain.Reservation) error {
	if err := r.u.fault(FaultReservationCreate); err != nil {
		return err
	}
	for _, existing := range r.u.st.reservations {
		if existing.ReservationNumber == res.ReservationNumber || existing.ReferenceCode == res.ReferenceCode {
			return repository.ErrDuplicate
		}
	}
	if r.violatesExclusion(res) {
		return repository.ErrOverlap
	}
	r.u.st.nextID++
	res.ID = r.u.st.nextID
	now := time.Now()
	res.CreatedOn, res.UpdatedOn = now, now
	r.u.st.reservations[res.ID] = *res
	return nil
}

func (r reservationRepo) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	res, ok := r.u.st.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &res, nil
}

func (r reservationRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r reservationRepo) GetByReferenceCode(_ context.Context, code string) (*domain.Reservation, error) {
	for _, res := range r.u.st.reservations {
		if res.ReferenceCode == code {
			return &res, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r reservationRepo) Update(_ context.Context, res *domain.Reservation) error {
	if _, ok := r.u.st.reservations[res.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.violatesExclusion(res) {
		return repository.ErrOverlap
	}
	res.UpdatedOn = time.Now()
	r.u.st.reservations[res.ID] = *res
	return nil
}

func (r reservationRepo) ListOverlapping(_ context.Context, roomID string, checkIn, checkOut time.Time, statuses []domain.ReservationStatus, excludeID *int64) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range r.u.st.reservations {
		if res.RoomID != roomID || !hasStatus(statuses, res.Status) {
			continue
		}
		if excludeID != nil && res.ID == *excludeID {
			continue
		}
		if res.CheckIn.Before(checkOut) && res.CheckOut.After(checkIn) {
			out = append(out, res)
		}
	}
	sortByCheckIn(out)
	return out, nil
}

func (r reservationRepo) ListPendingBefore(_ context.Context, before time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range r.u.st.reservations {
		if res.Status == domain.ReservationStatusPending && res.CheckIn.Before(before) {
			out = append(out, res)
		}
	}
	sortByCheckIn(out)
	return out, nil
}

func (r reservationRepo) ListNumbersWithPrefix(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, res := range r.u.st.reservations {
		if strings.HasPrefix(res.ReservationNumber, prefix) {
			out = append(out, res.ReservationNumber)
		}
	}
	return out, nil
}

func (r reservationRepo) NumberExists(_ context.Context, number string) (bool, error) {
	for _, res := range r.u.st.reservations {
		if res.ReservationNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r reservationRepo) CodeInUse(_ context.Context, code string) (bool, error) {
	for _, res := range r.u.st.reservations {
		if res.ReferenceCode == code || (res.GroupReference != nil && *res.GroupReference == code) {
			return true, nil
		}
	}
	return false, nil
}

// violatesExclusion mirrors the schema's exclusion constraint: active stays
// of one room may not share a calendar day in [check_in, check_out).
func (r reservationRepo) violatesExclusion(res *domain.Reservation) bool {
	if !res.Status.Active() {
		return false
	}
	from, to := utils.CalendarDay(res.CheckIn), utils.CalendarDay(res.CheckOut)
	for _, existing := range r.u.st.reservations {
		if existing.ID == res.ID || existing.RoomID != res.RoomID || !existing.Status.Active() {
			continue
		}
		if utils.CalendarDay(existing.CheckIn).Before(to) && from.Before(utils.CalendarDay(existing.CheckOut)) {
			return true
		}
	}
	return false
}

func hasStatus(statuses []domain.ReservationStatus, s domain.ReservationStatus) bool {
	for _, want := range statuses {
		if want == s {
			return true
		}
	}
	return false
}

func sortByCheckIn(rs []domain.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CheckIn.Equal(rs[j].CheckIn) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CheckIn.Before(rs[j].CheckIn)
	})
}

type sequenceRepo struct{ u *unitOfWork }

func (r sequenceRepo) Next(_ context.Context, name string) (int64, error) {
	if err := r.u.fault(FaultSequenceNext); err != nil {
		return 0, err
	}
	n, ok := r.u.st.sequences[name]
	if !ok {
		return 0, repository.ErrSequenceUnavailable
	}
	n++
	r.u.st.sequences[name] = n
	return n, nil
}

type guestRepo struct{ u *unitOfWork }

func (r guestRepo) Create(_ context.Context, g *domain.Guest) error {
	g.CreatedOn = time.Now()
	r.u.st.guests[g.ID] = *g
	return nil
}

func (r guestRepo) GetByID(_ context.Context, id string) (*domain.Guest, error) {
	g, ok := r.u.st.guests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

type slotRepo struct{ u *unitOfWork }

func (r slotRepo) Create(_ context.Context, sl *domain.Slot) error {
	if err := r.u.fault(FaultSlotCreate); err != nil {
		return err
	}
	sl.CreatedOn = time.Now()
	r.u.st.slots[sl.ID] = *sl
	return nil
}

func (r slotRepo) AttachReservation(_ context.Context, slotID string, reservationID int64) error {
	sl, ok := r.u.st.slots[slotID]
	if !ok {
		return repository.ErrNotFound
	}
	sl.ReservationID = &reservationID
	r.u.st.slots[slotID] = sl
	return nil
}

type auditRepo struct{ u *unitOfWork }

func (r auditRepo) Append(_ context.Context, e *domain.AuditEntry) error {
	if err := r.u.fault(FaultAuditAppend); err != nil {
		return err
	}
	r.u.st.audit = append(r.u.st.audit, *e)
	return nil
}

func (r auditRepo) ListByReservation(_ context.Context, reservationID int64) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range r.u.st.audit {
		if e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	return out, nil
}
