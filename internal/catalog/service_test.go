package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
)

func newCatalogFixture(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Item{}, &models.Reservation{}))

	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestCreateAndGetItem(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{Name: "Projector", Category: "AV", Location: "Room 2", Quantity: 3})
	require.NoError(t, err)
	require.NotZero(t, item.ID)

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "Projector", got.Name)
	require.Equal(t, 3, got.Quantity)
}

func TestCreateRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ItemInput{Name: "Drill", Category: "Tools", Location: "Shelf A", Quantity: 5})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ItemInput{Name: "drill", Category: "Tools", Location: "Shelf B", Quantity: 1})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestUpdateItem(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{Name: "Ladder", Category: "Tools", Location: "Garage", Quantity: 2})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, item.ID, ItemInput{Name: "Ladder", Category: "Tools", Location: "Shed", Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, "Shed", updated.Location)
	require.Equal(t, 4, updated.Quantity)
}

func TestUpdateRejectsNameCollision(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ItemInput{Name: "Drill", Category: "Tools", Location: "Shelf A", Quantity: 5})
	require.NoError(t, err)
	saw, err := svc.Create(ctx, ItemInput{Name: "Saw", Category: "Tools", Location: "Shelf A", Quantity: 2})
	require.NoError(t, err)

	_, err = svc.Update(ctx, saw.ID, ItemInput{Name: "DRILL", Category: "Tools", Location: "Shelf A", Quantity: 2})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestDeleteItemWithPendingReservations(t *testing.T) {
	svc, conn := newCatalogFixture(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, ItemInput{Name: "Camera", Category: "AV", Location: "Locker", Quantity: 1})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, conn.Create(&models.Reservation{
		ItemID:              item.ID,
		BorrowerID:          1,
		Quantity:            1,
		BorrowDate:          now,
		ScheduledReturnDate: now.AddDate(0, 0, 7),
		Status:              enums.ReservationStatusPending,
	}).Error)

	err = svc.Delete(ctx, item.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// release the stock, then deletion succeeds
	require.NoError(t, conn.Model(&models.Reservation{}).
		Where("item_id = ?", item.ID).
		Update("status", enums.ReservationStatusReturned).Error)

	require.NoError(t, svc.Delete(ctx, item.ID))

	_, err = svc.Get(ctx, item.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListFiltersByCategoryAndLocation(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	seed := []ItemInput{
		{Name: "Drill", Category: "Tools", Location: "Shelf A", Quantity: 5},
		{Name: "Saw", Category: "Tools", Location: "Shelf B", Quantity: 2},
		{Name: "Projector", Category: "AV", Location: "Shelf A", Quantity: 1},
	}
	for _, input := range seed {
		_, err := svc.Create(ctx, input)
		require.NoError(t, err)
	}

	tools, err := svc.List(ctx, ListFilter{Category: "Tools"})
	require.NoError(t, err)
	require.Len(t, tools, 2)

	shelfA, err := svc.List(ctx, ListFilter{Location: "Shelf A"})
	require.NoError(t, err)
	require.Len(t, shelfA, 2)

	toolsShelfA, err := svc.List(ctx, ListFilter{Category: "Tools", Location: "Shelf A"})
	require.NoError(t, err)
	require.Len(t, toolsShelfA, 1)
	require.Equal(t, "Drill", toolsShelfA[0].Name)
}

func TestItemInputValidation(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input ItemInput
	}{
		{"missing name", ItemInput{Category: "Tools", Location: "Shelf A", Quantity: 1}},
		{"missing category", ItemInput{Name: "Drill", Location: "Shelf A", Quantity: 1}},
		{"missing location", ItemInput{Name: "Drill", Category: "Tools", Quantity: 1}},
		{"negative quantity", ItemInput{Name: "Drill", Category: "Tools", Location: "Shelf A", Quantity: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			require.Error(t, err)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}
