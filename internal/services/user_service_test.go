package services

import (
	"testing"

	"sikeu/internal/models"
	"sikeu/internal/testutil"
)

func TestUserCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewUserService(db, NewAuditService(db))

	school := testutil.CreateTestSchool(t, db)
	otherSchool := testutil.CreateTestSchool(t, db)
	super := testutil.CreateTestUser(t, db, models.RoleSuperAdmin, nil).Principal()
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID).Principal()
	treasurer := testutil.CreateTestUser(t, db, models.RoleTreasurer, &school.ID).Principal()

	t.Run("admin creates a treasurer in own school", func(t *testing.T) {
		user, err := svc.Create(admin, UserInput{
			Email:    "bendahara@example.com",
			Password: "rahasia123",
			Name:     "Bendahara",
			Role:     models.RoleTreasurer,
		})
		testutil.AssertNoError(t, err)
		if user.SchoolID == nil || *user.SchoolID != school.ID {
			t.Error("user not pinned to the admin's school")
		}
		if user.Password == "rahasia123" {
			t.Error("password stored in plaintext")
		}
	})

	t.Run("admin payload cannot target another school", func(t *testing.T) {
		user, err := svc.Create(admin, UserInput{
			Email:    "pindah@example.com",
			Password: "rahasia123",
			Role:     models.RoleUser,
			SchoolID: &otherSchool.ID,
		})
		testutil.AssertNoError(t, err)
		if *user.SchoolID != school.ID {
			t.Error("admin escaped its own school binding")
		}
	})

	t.Run("admin cannot mint another admin", func(t *testing.T) {
		_, err := svc.Create(admin, UserInput{
			Email:    "duaadmin@example.com",
			Password: "rahasia123",
			Role:     models.RoleAdmin,
		})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("super admin mints an admin for any school", func(t *testing.T) {
		user, err := svc.Create(super, UserInput{
			Email:    "kepala@example.com",
			Password: "rahasia123",
			Role:     models.RoleAdmin,
			SchoolID: &otherSchool.ID,
		})
		testutil.AssertNoError(t, err)
		if *user.SchoolID != otherSchool.ID {
			t.Error("super admin creation ignored the target school")
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := svc.Create(admin, UserInput{
			Email:    "bendahara@example.com",
			Password: "rahasia123",
			Role:     models.RoleUser,
		})
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("treasurer cannot manage users", func(t *testing.T) {
		_, err := svc.Create(treasurer, UserInput{
			Email:    "siapa@example.com",
			Password: "rahasia123",
			Role:     models.RoleUser,
		})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("school-bound role requires a school", func(t *testing.T) {
		_, err := svc.Create(super, UserInput{
			Email:    "tanpasekolah@example.com",
			Password: "rahasia123",
			Role:     models.RoleUser,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUserAccessAndLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewUserService(db, NewAuditService(db))

	school := testutil.CreateTestSchool(t, db)
	otherSchool := testutil.CreateTestSchool(t, db)
	admin := testutil.CreateTestUser(t, db, models.RoleAdmin, &school.ID).Principal()
	foreignAdmin := testutil.CreateTestUser(t, db, models.RoleAdmin, &otherSchool.ID).Principal()
	member := testutil.CreateTestUser(t, db, models.RoleUser, &school.ID)

	t.Run("any user reads its own record", func(t *testing.T) {
		got, err := svc.Get(member.Principal(), member.ID)
		testutil.AssertNoError(t, err)
		if got.ID != member.ID {
			t.Error("self lookup returned the wrong user")
		}
	})

	t.Run("plain user cannot read others", func(t *testing.T) {
		_, err := svc.Get(member.Principal(), admin.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("foreign admin sees not found", func(t *testing.T) {
		_, err := svc.Get(foreignAdmin, member.ID)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("update changes the role within limits", func(t *testing.T) {
		role := models.RoleTreasurer
		_, err := svc.Update(admin, member.ID, UserPatch{Role: &role})
		testutil.AssertNoError(t, err)

		var reloaded models.User
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", member.ID).Error)
		if reloaded.Role != models.RoleTreasurer {
			t.Errorf("role = %q after update", reloaded.Role)
		}

		super := models.RoleSuperAdmin
		_, err = svc.Update(admin, member.ID, UserPatch{Role: &super})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("deactivate disables login but keeps the row", func(t *testing.T) {
		testutil.AssertNoError(t, svc.Deactivate(admin, member.ID))

		var reloaded models.User
		testutil.AssertNoError(t, db.First(&reloaded, "id = ?", member.ID).Error)
		if reloaded.IsActive {
			t.Error("user still active after deactivation")
		}

		_, err := svc.AttemptLogin(reloaded.Email, "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestAttemptLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := NewUserService(db, NewAuditService(db))

	school := testutil.CreateTestSchool(t, db)
	user := testutil.CreateTestUser(t, db, models.RoleTreasurer, &school.ID)

	t.Run("valid credentials", func(t *testing.T) {
		got, err := svc.AttemptLogin(user.Email, "password123")
		testutil.AssertNoError(t, err)
		if got.ID != user.ID {
			t.Error("login resolved the wrong user")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.AttemptLogin(user.Email, "salah")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.AttemptLogin("tidakada@example.com", "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}
