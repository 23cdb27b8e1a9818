package tests

import (
	"net/http"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exoshivam/smart-attendance/core/attendance"
	"github.com/exoshivam/smart-attendance/core/student"
	"github.com/exoshivam/smart-attendance/core/testutil"
)

func Test_studentApi_create(t *testing.T) {
	f := setup(t)
	sch := testutil.CreateSchool(t, f.schoolRepo, "School A", "sch-a", "North")
	testutil.CreateStudent(t, f.studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)
	token := f.teacherToken(t, sch.ID)
	path := "/v1/students"

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     path,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "government token",
			method:   http.MethodPost,
			path:     path,
			token:    f.governmentToken(t),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "blank fields",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"name": " ", "rollNumber": "", "rfidTagId": "", "class": "", "section": ""}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"name": "this field cannot be blank",
				"rollNumber": "this field is required",
				"rfidTagId": "this field is required",
				"class": "this field cannot be blank",
				"section": "this field cannot be blank"
			}`),
		},
		{
			name:     "taken tag",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"name": "Arun", "rollNumber": "A2", "rfidTagId": "TAG1", "class": "10", "section": "B"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"rfidTagId": "` + student.ErrTagExists.Error() + `"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, f.serve(req, rec))
		})
	}

	t.Run("created in the caller's school", func(t *testing.T) {
		body := []byte(`{"name": " Arun ", "rollNumber": "A2", "rfidTagId": "TAG2", "class": "10", "section": "B", "parentEmail": "Parent@Mail.test"}`)
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		f.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var std student.Student
		unmarshal(t, rec, &std)
		assert.NotEmpty(t, std.ID)
		assert.Equal(t, "Arun", std.Name)
		assert.Equal(t, sch.ID, std.SchoolID)
		assert.Equal(t, "parent@mail.test", std.ParentEmail)
		assert.Equal(t, 0.0, std.DropoutRisk)
	})
}

func Test_studentApi_query(t *testing.T) {
	f := setup(t)
	schA := testutil.CreateSchool(t, f.schoolRepo, "School A", "sch-a", "North")
	schB := testutil.CreateSchool(t, f.schoolRepo, "School B", "sch-b", "North")
	s2 := testutil.CreateStudent(t, f.studentRepo, schA.ID, "Bala", "A2", "TAG2", 0)
	s1 := testutil.CreateStudent(t, f.studentRepo, schA.ID, "Asha", "A1", "TAG1", 0)
	testutil.CreateStudent(t, f.studentRepo, schB.ID, "Ben", "B1", "TAG3", 0)
	token := f.teacherToken(t, schA.ID)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{name: "ordered by roll number", query: "", wantIDs: []string{s1.ID, s2.ID}},
		{name: "custom ordering", query: "?ordering=-roll_number", wantIDs: []string{s2.ID, s1.ID}},
		{name: "search name", query: "?search=bal", wantIDs: []string{s2.ID}},
		{name: "search tag", query: "?search=tag1", wantIDs: []string{s1.ID}},
		{name: "no match", query: "?search=ben", wantIDs: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/students"+tc.query, token)
			f.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var students []student.Student
			unmarshal(t, rec, &students)
			ids := make([]string, 0, len(students))
			for _, s := range students {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func Test_studentApi_profile(t *testing.T) {
	f := setup(t)
	schA := testutil.CreateSchool(t, f.schoolRepo, "School A", "sch-a", "North")
	schB := testutil.CreateSchool(t, f.schoolRepo, "School B", "sch-b", "North")
	std := testutil.CreateStudent(t, f.studentRepo, schA.ID, "Asha", "A1", "TAG1", 0)
	other := testutil.CreateStudent(t, f.studentRepo, schB.ID, "Ben", "B1", "TAG2", 0)
	token := f.teacherToken(t, schA.ID)

	today := civil.DateOf(testutil.Now)
	testutil.CreateAttendance(t, f.recordRepo, std, today, attendance.StatusPresent, attendance.MethodRFID)
	testutil.CreateAttendance(t, f.recordRepo, std, today.AddDays(-1), attendance.StatusAbsent, attendance.MethodManual)
	testutil.CreateAttendance(t, f.recordRepo, std, today.AddDays(-2), attendance.StatusPresent, attendance.MethodRFID)
	testutil.CreateAttendance(t, f.recordRepo, std, today.AddDays(-40), attendance.StatusPresent, attendance.MethodRFID)

	t.Run("other school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+other.ID, token)
		f.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"})}, rec)
	})

	t.Run("unknown", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/nope", token)
		f.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("30 day stats and history", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+std.ID, token)
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var profile attendance.StudentProfile
		unmarshal(t, rec, &profile)
		assert.Equal(t, std.ID, profile.Student.ID)
		assert.Equal(t, attendance.StudentStats{PresentDays: 2, MarkedDays: 3, Percentage: 66.7}, profile.Stats)
		require.Len(t, profile.History, 4)
		assert.Equal(t, today, profile.History[0].Day)
	})
}

func Test_studentApi_registerFace(t *testing.T) {
	f := setup(t)
	sch := testutil.CreateSchool(t, f.schoolRepo, "School A", "sch-a", "North")
	std := testutil.CreateStudent(t, f.studentRepo, sch.ID, "Asha", "A1", "TAG1", 0)
	token := f.teacherToken(t, sch.ID)
	path := "/v1/students/" + std.ID + "/face"

	t.Run("missing photo", func(t *testing.T) {
		req, rec := newPhotoRequest(t, path, token, nil)
		f.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("registered under the roll number", func(t *testing.T) {
		req, rec := newPhotoRequest(t, path, token, []byte("jpeg"))
		f.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated student.Student
		unmarshal(t, rec, &updated)
		assert.Equal(t, "A1", updated.FaceRef)
		assert.Equal(t, []string{"A1"}, f.faces.registered)
	})
}
