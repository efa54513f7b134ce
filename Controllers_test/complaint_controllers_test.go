package Controllers_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campuscare/grievance-app/models"
)

// submitForm builds the multipart body for a complaint submission, with
// one attachment per entry in files (name -> content).
func submitForm(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile("attachments", name)
		assert.NoError(t, err)
		_, err = part.Write(content)
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postComplaint(t *testing.T, r *gin.Engine, token string, fields map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := submitForm(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/api/complaints", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateComplaintWithAttachments(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())

	db := setupTestDB(t)
	r := setupRouterForTest(db)
	dept := seedDepartment(t, db, "Infrastructure")
	student := seedUser(t, db, models.RoleStudent, "submitter@campus.edu", nil)

	w := postComplaint(t, r, tokenFor(t, student), map[string]string{
		"subject":       "Broken projector in LH-3",
		"description":   "The projector has not worked for a week.",
		"category":      models.CategoryInfrastructure,
		"priority":      models.PriorityHigh,
		"department_id": dept.ID,
		"location":      "Lecture Hall 3",
	}, map[string][]byte{
		"photo.jpg":  []byte("fake image bytes"),
		"report.pdf": []byte("fake pdf bytes"),
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var complaint models.Complaint
	assert.NoError(t, db.Preload("Attachments").Preload("History").
		First(&complaint, "subject = ?", "Broken projector in LH-3").Error)
	assert.Equal(t, models.StatusSubmitted, complaint.Status)
	assert.Equal(t, student.ID, complaint.UserID)
	assert.Len(t, complaint.Attachments, 2)
	assert.Len(t, complaint.History, 1)
	assert.Equal(t, models.ActionSubmitted, complaint.History[0].Action)
}

func TestCreateComplaintRejectsTooManyAttachments(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())

	db := setupTestDB(t)
	r := setupRouterForTest(db)
	student := seedUser(t, db, models.RoleStudent, "many@campus.edu", nil)

	files := make(map[string][]byte)
	for i := 0; i < 6; i++ {
		files[fmt.Sprintf("file-%d.png", i)] = []byte("x")
	}

	w := postComplaint(t, r, tokenFor(t, student), map[string]string{
		"subject":     "Too many files",
		"description": "d",
		"category":    models.CategoryOther,
	}, files)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	db.Model(&models.Complaint{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestCreateComplaintRejectsOversizeAttachment(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())

	db := setupTestDB(t)
	r := setupRouterForTest(db)
	student := seedUser(t, db, models.RoleStudent, "big@campus.edu", nil)

	w := postComplaint(t, r, tokenFor(t, student), map[string]string{
		"subject":     "Huge file",
		"description": "d",
		"category":    models.CategoryOther,
	}, map[string][]byte{
		"huge.pdf": bytes.Repeat([]byte("a"), 10<<20+1),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateComplaintRejectsUnknownCategory(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	student := seedUser(t, db, models.RoleStudent, "cat@campus.edu", nil)

	w := postComplaint(t, r, tokenFor(t, student), map[string]string{
		"subject":     "Bad category",
		"description": "d",
		"category":    "time_travel",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentOnlySeesOwnComplaints(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	alice := seedUser(t, db, models.RoleStudent, "alice@campus.edu", nil)
	bob := seedUser(t, db, models.RoleStudent, "bob@campus.edu", nil)
	mine := seedComplaint(t, db, alice, nil, models.StatusSubmitted)
	seedComplaint(t, db, bob, nil, models.StatusSubmitted)

	w := doJSON(t, r, http.MethodGet, "/api/complaints", tokenFor(t, alice), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	list := decodeData(t, w).([]interface{})
	assert.Len(t, list, 1)
	first := list[0].(map[string]interface{})
	assert.Equal(t, mine.ID, first["id"])
}

func TestStaffScopedToOwnDepartment(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	deptA := seedDepartment(t, db, "Infrastructure")
	deptB := seedDepartment(t, db, "Food Services")
	staff := seedUser(t, db, models.RoleStaff, "staff-a@campus.edu", &deptA.ID)
	student := seedUser(t, db, models.RoleStudent, "student@campus.edu", nil)
	inDeptA := seedComplaint(t, db, student, &deptA.ID, models.StatusSubmitted)
	inDeptB := seedComplaint(t, db, student, &deptB.ID, models.StatusSubmitted)

	token := tokenFor(t, staff)

	for _, path := range []string{"/api/complaints", "/api/complaints/department"} {
		w := doJSON(t, r, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		list := decodeData(t, w).([]interface{})
		assert.Len(t, list, 1, "path %s", path)
		first := list[0].(map[string]interface{})
		assert.Equal(t, inDeptA.ID, first["id"])
	}

	// Direct reads outside the department are forbidden as well.
	w := doJSON(t, r, http.MethodGet, "/api/complaints/"+inDeptB.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStudentCannotReadOthersComplaint(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	alice := seedUser(t, db, models.RoleStudent, "alice2@campus.edu", nil)
	bob := seedUser(t, db, models.RoleStudent, "bob2@campus.edu", nil)
	bobs := seedComplaint(t, db, bob, nil, models.StatusSubmitted)

	w := doJSON(t, r, http.MethodGet, "/api/complaints/"+bobs.ID, tokenFor(t, alice), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateStatusWalksMachine(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	dept := seedDepartment(t, db, "Infrastructure")
	staff := seedUser(t, db, models.RoleStaff, "resolver@campus.edu", &dept.ID)
	student := seedUser(t, db, models.RoleStudent, "owner@campus.edu", nil)
	complaint := seedComplaint(t, db, student, &dept.ID, models.StatusSubmitted)

	token := tokenFor(t, staff)

	w := doJSON(t, r, http.MethodPatch, "/api/complaints/"+complaint.ID+"/status", token, map[string]string{
		"status":  models.StatusResolved,
		"comment": "Replaced the projector bulb.",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Complaint
	assert.NoError(t, db.First(&updated, "id = ?", complaint.ID).Error)
	assert.Equal(t, models.StatusResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)

	// The comment becomes a staff update in the complaint's chat room.
	var msg models.ChatMessage
	assert.NoError(t, db.First(&msg, "complaint_id = ?", complaint.ID).Error)
	assert.Equal(t, models.MessageTypeStaffUpdate, msg.MessageType)

	// The owner is notified.
	var notif models.Notification
	assert.NoError(t, db.First(&notif, "user_id = ? AND type = ?", student.ID, models.NotifStatusUpdated).Error)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	dept := seedDepartment(t, db, "Infrastructure")
	staff := seedUser(t, db, models.RoleStaff, "late@campus.edu", &dept.ID)
	student := seedUser(t, db, models.RoleStudent, "done@campus.edu", nil)
	complaint := seedComplaint(t, db, student, &dept.ID, models.StatusClosed)

	w := doJSON(t, r, http.MethodPatch, "/api/complaints/"+complaint.ID+"/status", tokenFor(t, staff), map[string]string{
		"status": models.StatusInProgress,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var unchanged models.Complaint
	assert.NoError(t, db.First(&unchanged, "id = ?", complaint.ID).Error)
	assert.Equal(t, models.StatusClosed, unchanged.Status)
}

func TestUpdateStatusForbiddenForOtherDepartment(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	deptA := seedDepartment(t, db, "Infrastructure")
	deptB := seedDepartment(t, db, "Food Services")
	staff := seedUser(t, db, models.RoleStaff, "outsider@campus.edu", &deptA.ID)
	student := seedUser(t, db, models.RoleStudent, "victim@campus.edu", nil)
	complaint := seedComplaint(t, db, student, &deptB.ID, models.StatusSubmitted)

	w := doJSON(t, r, http.MethodPatch, "/api/complaints/"+complaint.ID+"/status", tokenFor(t, staff), map[string]string{
		"status": models.StatusInProgress,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssignComplaint(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	dept := seedDepartment(t, db, "IT Services")
	admin := seedUser(t, db, models.RoleAdmin, "admin@campus.edu", nil)
	staff := seedUser(t, db, models.RoleStaff, "assignee@campus.edu", &dept.ID)
	student := seedUser(t, db, models.RoleStudent, "reporter@campus.edu", nil)
	complaint := seedComplaint(t, db, student, &dept.ID, models.StatusSubmitted)

	w := doJSON(t, r, http.MethodPatch, "/api/complaints/"+complaint.ID+"/assign", tokenFor(t, admin), map[string]string{
		"assigned_to_id": staff.ID,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Complaint
	assert.NoError(t, db.First(&updated, "id = ?", complaint.ID).Error)
	assert.Equal(t, models.StatusAssigned, updated.Status)
	assert.Equal(t, staff.ID, *updated.AssignedToID)

	// Assignee and owner both get a notification.
	var count int64
	db.Model(&models.Notification{}).
		Where("type = ?", models.NotifComplaintAssigned).
		Count(&count)
	assert.EqualValues(t, 2, count)

	// Students cannot assign.
	w = doJSON(t, r, http.MethodPatch, "/api/complaints/"+complaint.ID+"/assign", tokenFor(t, student), map[string]string{
		"assigned_to_id": staff.ID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetComplaintMessages(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouterForTest(db)
	student := seedUser(t, db, models.RoleStudent, "chatter@campus.edu", nil)
	other := seedUser(t, db, models.RoleStudent, "lurker@campus.edu", nil)
	complaint := seedComplaint(t, db, student, nil, models.StatusSubmitted)

	for i := 0; i < 3; i++ {
		msg := models.ChatMessage{
			ComplaintID: complaint.ID,
			SenderID:    student.ID,
			Message:     fmt.Sprintf("message %d", i),
			MessageType: models.MessageTypeText,
		}
		assert.NoError(t, db.Create(&msg).Error)
	}

	w := doJSON(t, r, http.MethodGet, "/api/complaints/"+complaint.ID+"/messages", tokenFor(t, student), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	list := decodeData(t, w).([]interface{})
	assert.Len(t, list, 3)

	w = doJSON(t, r, http.MethodGet, "/api/complaints/"+complaint.ID+"/messages", tokenFor(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
