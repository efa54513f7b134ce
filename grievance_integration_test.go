package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/chat"
	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/router"
	"github.com/campuscare/grievance-app/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEndToEndIntegration walks the main flow:
// 1. Admin provisions a staff account for a department
// 2. A student registers and submits a complaint with an attachment
// 3. The staff member sees it in the department queue
// 4. The staff member resolves it with a comment
// 5. Resolution timestamp, history, chat and notifications line up
func TestEndToEndIntegration(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())

	db := setupIntegrationDB(t)
	r := router.SetupRouter(db, chat.NewHub(db, nil))

	adminToken := loginAs(t, r, "admin@campus.edu", "secret123")

	// 1. Provision staff for the Infrastructure department.
	var dept models.Department
	assert.NoError(t, db.First(&dept, "name = ?", "Infrastructure").Error)

	w := doRequest(t, r, http.MethodPost, "/api/admin/users", adminToken, map[string]interface{}{
		"email":         "staff@campus.edu",
		"first_name":    "Sana",
		"last_name":     "Staff",
		"password":      "secret123",
		"role":          models.RoleStaff,
		"department_id": dept.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// 2. Student registers and files a complaint.
	w = doRequest(t, r, http.MethodPost, "/register", "", map[string]string{
		"email":      "student@campus.edu",
		"first_name": "Omar",
		"last_name":  "Student",
		"password":   "secret123",
		"student_id": "STU-3001",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	studentToken := loginAs(t, r, "student@campus.edu", "secret123")

	complaintID := submitComplaint(t, r, studentToken, dept.ID)

	// 3. Staff sees it in the department queue.
	staffToken := loginAs(t, r, "staff@campus.edu", "secret123")
	w = doRequest(t, r, http.MethodGet, "/api/complaints/department", staffToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	queue := responseData(t, w).([]interface{})
	assert.Len(t, queue, 1)
	assert.Equal(t, complaintID, queue[0].(map[string]interface{})["id"])
	assert.Equal(t, models.StatusSubmitted, queue[0].(map[string]interface{})["status"])

	// 4. Staff resolves it with a comment.
	w = doRequest(t, r, http.MethodPatch, "/api/complaints/"+complaintID+"/status", staffToken, map[string]string{
		"status":  models.StatusResolved,
		"comment": "Fixed the wiring in the lecture hall.",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 5. Everything lines up.
	var complaint models.Complaint
	assert.NoError(t, db.Preload("Attachments").Preload("History").
		First(&complaint, "id = ?", complaintID).Error)
	assert.Equal(t, models.StatusResolved, complaint.Status)
	assert.NotNil(t, complaint.ResolvedAt)
	assert.Len(t, complaint.Attachments, 1)
	assert.Len(t, complaint.History, 2)

	actions := []string{complaint.History[0].Action, complaint.History[1].Action}
	assert.Contains(t, actions, models.ActionSubmitted)
	assert.Contains(t, actions, models.ActionStatusUpdated)

	var student models.User
	assert.NoError(t, db.First(&student, "email = ?", "student@campus.edu").Error)
	var notif models.Notification
	assert.NoError(t, db.First(&notif, "user_id = ? AND type = ?", student.ID, models.NotifStatusUpdated).Error)

	var staffUpdate models.ChatMessage
	assert.NoError(t, db.First(&staffUpdate, "complaint_id = ? AND message_type = ?",
		complaintID, models.MessageTypeStaffUpdate).Error)
	assert.Equal(t, "Fixed the wiring in the lecture hall.", staffUpdate.Message)

	// The student can read the resolved record back.
	w = doRequest(t, r, http.MethodGet, "/api/complaints/"+complaintID, studentToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func setupIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.Complaint{},
		&models.ComplaintAttachment{},
		&models.ComplaintHistory{},
		&models.ChatMessage{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	db.Create(&models.User{
		Email:     "admin@campus.edu",
		FirstName: "Root",
		LastName:  "Admin",
		Password:  string(hashed),
		Role:      models.RoleAdmin,
	})
	db.Create(&models.Department{
		Name:        "Infrastructure",
		Description: "Campus buildings and equipment",
	})

	return db
}

func loginAs(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()

	w := doRequest(t, r, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	data := responseData(t, w).(map[string]interface{})
	token, ok := data["token"].(string)
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	return token
}

func submitComplaint(t *testing.T, r *gin.Engine, token, departmentID string) string {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"subject":       "No power in Lecture Hall 2",
		"description":   "The sockets along the east wall are dead.",
		"category":      models.CategoryInfrastructure,
		"priority":      models.PriorityHigh,
		"department_id": departmentID,
		"location":      "Lecture Hall 2",
	}
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("attachments", "socket.jpg")
	assert.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/complaints", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	data := responseData(t, w).(map[string]interface{})
	id, ok := data["id"].(string)
	assert.True(t, ok)
	return id
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) interface{} {
	t.Helper()

	var envelope map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return envelope["data"]
}
