package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asbaaq-attendance/attendance"
	"asbaaq-attendance/core"
	"asbaaq-attendance/db"
	"asbaaq-attendance/models"
	"asbaaq-attendance/reports"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Roster     *db.RosterStore
	Records    *db.AttendanceStore
	Attendance *attendance.Service
	Stats      *attendance.Aggregator
	log        *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(roster *db.RosterStore, records *db.AttendanceStore, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		Roster:     roster,
		Records:    records,
		Attendance: attendance.NewService(roster, records, logger),
		Stats:      attendance.NewAggregator(roster, records),
		log:        logger,
	}
}

// RegisterRoutes mounts the API under /api.
func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	{
		api.GET("/ping", PingHandler)

		// Asbaaq & roster
		api.GET("/asbaaq", h.GetAsbaaq)
		api.GET("/asbaaq/:sabaqId", h.GetSabaqByID)
		api.GET("/asbaaq/:sabaqId/students", h.GetStudents)
		api.POST("/asbaaq/:sabaqId/students", h.AddStudent)
		api.GET("/asbaaq/:sabaqId/students/:itsNumber", h.GetStudent)
		api.DELETE("/asbaaq/:sabaqId/students/:itsNumber", h.RemoveStudent)
		api.POST("/asbaaq/:sabaqId/import", h.ImportStudents)

		// Attendance
		api.GET("/attendance", h.GetAllRecords)
		api.GET("/attendance/overview", h.GetOverview)
		api.GET("/asbaaq/:sabaqId/attendance", h.GetRecordsForSabaq)
		api.GET("/asbaaq/:sabaqId/sessions", h.GetSessions)
		api.GET("/asbaaq/:sabaqId/attendance/:date", h.GetDay)
		api.PUT("/asbaaq/:sabaqId/attendance/:date", h.SaveDay)
		api.POST("/asbaaq/:sabaqId/attendance/:date/present", h.MarkPresent)

		// Cumulative stats
		api.GET("/asbaaq/:sabaqId/stats", h.GetStats)
		api.GET("/asbaaq/:sabaqId/stats/export", h.ExportStats)
	}
}

// fail maps an error onto an HTTP status and JSON body.
func (h *APIHandler) fail(c *gin.Context, err error) {
	if vErr, ok := core.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "fields": vErr.FieldMap()})
		return
	}
	switch errors.Cause(err) {
	case db.ErrSabaqNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
	case db.ErrStudentExists, attendance.ErrAlreadyPresent:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case attendance.ErrNotEnrolled:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// --- Asbaaq Handlers ---

// GetAsbaaq handles GET /api/asbaaq, or a lookup by exact name with ?name=
func (h *APIHandler) GetAsbaaq(c *gin.Context) {
	if name, ok := c.GetQuery("name"); ok {
		sabaq, found := h.Roster.GetSabaqByName(name)
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
			return
		}
		c.JSON(http.StatusOK, sabaq)
		return
	}
	c.JSON(http.StatusOK, h.Roster.ListSabaqs())
}

// GetSabaqByID handles GET /api/asbaaq/:sabaqId
func (h *APIHandler) GetSabaqByID(c *gin.Context) {
	sabaq, ok := h.Roster.GetSabaqByID(c.Param("sabaqId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
		return
	}
	c.JSON(http.StatusOK, sabaq)
}

// --- Student Handlers ---

type newStudentRequest struct {
	ITSNumber   string `json:"itsNumber" validate:"required,its"`
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

// GetStudents handles GET /api/asbaaq/:sabaqId/students
func (h *APIHandler) GetStudents(c *gin.Context) {
	sabaq, ok := h.Roster.GetSabaqByID(c.Param("sabaqId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
		return
	}
	c.JSON(http.StatusOK, sabaq.EnrolledStudents)
}

// GetStudent handles GET /api/asbaaq/:sabaqId/students/:itsNumber
func (h *APIHandler) GetStudent(c *gin.Context) {
	sabaq, ok := h.Roster.GetSabaqByID(c.Param("sabaqId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
		return
	}
	student, ok := db.GetStudentByIdentifier(sabaq, c.Param("itsNumber"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, student)
}

// AddStudent handles POST /api/asbaaq/:sabaqId/students
func (h *APIHandler) AddStudent(c *gin.Context) {
	var req newStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	req.ITSNumber = core.CleanString(req.ITSNumber)
	req.Name = core.CleanString(req.Name)
	req.PhoneNumber = core.CleanString(req.PhoneNumber)
	if err := core.Validate(req); err != nil {
		h.fail(c, err)
		return
	}

	student := models.Student{ITSNumber: req.ITSNumber, Name: req.Name, PhoneNumber: req.PhoneNumber}
	if err := h.Roster.AddStudent(c.Request.Context(), c.Param("sabaqId"), student); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

// RemoveStudent handles DELETE /api/asbaaq/:sabaqId/students/:itsNumber
func (h *APIHandler) RemoveStudent(c *gin.Context) {
	removed, err := h.Roster.RemoveStudent(c.Request.Context(), c.Param("sabaqId"), c.Param("itsNumber"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not enrolled in this sabaq"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportStudents handles POST /api/asbaaq/:sabaqId/import (multipart "file", .xlsx or .csv)
func (h *APIHandler) ImportStudents(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	sabaqID := c.Param("sabaqId")
	h.log.Info("roster upload received", zap.String("file", header.Filename), zap.String("sabaqId", sabaqID))

	result, err := h.Roster.ImportStudents(c.Request.Context(), sabaqID, file, filepath.Ext(header.Filename))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Attendance Handlers ---

type saveDayRequest struct {
	PresentStudents []string `json:"presentStudents"`
}

type markPresentRequest struct {
	ITSNumber string `json:"itsNumber"`
}

// GetAllRecords handles GET /api/attendance
func (h *APIHandler) GetAllRecords(c *gin.Context) {
	records, err := h.Records.GetAllRecords(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetOverview handles GET /api/attendance/overview
func (h *APIHandler) GetOverview(c *gin.Context) {
	overview, err := h.Attendance.Overview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// GetSessions handles GET /api/asbaaq/:sabaqId/sessions
func (h *APIHandler) GetSessions(c *gin.Context) {
	sabaqID := c.Param("sabaqId")
	if _, ok := h.Roster.GetSabaqByID(sabaqID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
		return
	}
	dates, err := h.Attendance.Sessions(c.Request.Context(), sabaqID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sabaqId": sabaqID, "dates": dates})
}

// GetRecordsForSabaq handles GET /api/asbaaq/:sabaqId/attendance
func (h *APIHandler) GetRecordsForSabaq(c *gin.Context) {
	sabaqID := c.Param("sabaqId")
	if _, ok := h.Roster.GetSabaqByID(sabaqID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
		return
	}
	records, err := h.Records.GetRecordsForSabaq(c.Request.Context(), sabaqID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetDay handles GET /api/asbaaq/:sabaqId/attendance/:date
func (h *APIHandler) GetDay(c *gin.Context) {
	date := c.Param("date")
	if err := core.ValidateDate(date); err != nil {
		h.fail(c, err)
		return
	}
	summary, err := h.Attendance.DaySummary(c.Request.Context(), c.Param("sabaqId"), date)
	if err != nil {
		h.fail(c, err)
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No attendance record found for this sabaq and date"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SaveDay handles PUT /api/asbaaq/:sabaqId/attendance/:date
func (h *APIHandler) SaveDay(c *gin.Context) {
	var req saveDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	record, err := h.Attendance.SaveAttendance(c.Request.Context(), c.Param("sabaqId"), c.Param("date"), req.PresentStudents)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// MarkPresent handles POST /api/asbaaq/:sabaqId/attendance/:date/present
func (h *APIHandler) MarkPresent(c *gin.Context) {
	var req markPresentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	student, err := h.Attendance.MarkPresent(c.Request.Context(), c.Param("sabaqId"), c.Param("date"), req.ITSNumber)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s marked present", student.Name),
		"student": student,
	})
}

// --- Stats Handlers ---

// GetStats handles GET /api/asbaaq/:sabaqId/stats
func (h *APIHandler) GetStats(c *gin.Context) {
	report, ok := h.stats(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportStats handles GET /api/asbaaq/:sabaqId/stats/export
func (h *APIHandler) ExportStats(c *gin.Context) {
	report, ok := h.stats(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteStatsWorkbook(report, &buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-attendance.xlsx"`, report.SabaqID))
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

// stats writes the error response itself and reports false when there is no report.
func (h *APIHandler) stats(c *gin.Context) (*models.AttendanceStatsReport, bool) {
	sabaqID := c.Param("sabaqId")
	if _, ok := h.Roster.GetSabaqByID(sabaqID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sabaq not found"})
		return nil, false
	}
	report, err := h.Stats.CalculateAttendanceStats(c.Request.Context(), sabaqID)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No attendance records found for this sabaq"})
		return nil, false
	}
	return report, true
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
