package models

// Student represents a student enrolled in a sabaq
type Student struct {
	ITSNumber   string `json:"itsNumber"`   // 8-digit ITS number, unique within a sabaq
	Name        string `json:"name"`        // Student name
	PhoneNumber string `json:"phoneNumber"` // Student phone number
}

// Sabaq represents a recurring class and its roster
type Sabaq struct {
	ID               string    `json:"id"`               // Unique sabaq ID
	Name             string    `json:"name"`             // Sabaq name
	EnrolledStudents []Student `json:"enrolledStudents"` // Roster, in enrolment order
}

// Clone returns a copy of the sabaq that does not share its roster slice.
func (s Sabaq) Clone() Sabaq {
	students := make([]Student, len(s.EnrolledStudents))
	copy(students, s.EnrolledStudents)
	s.EnrolledStudents = students
	return s
}

// AttendanceRecord holds the students present in one sabaq on one date
type AttendanceRecord struct {
	SabaqID         string   `json:"sabaqId"`
	Date            string   `json:"date"`            // YYYY-MM-DD
	PresentStudents []string `json:"presentStudents"` // ITS numbers of present students
}

// IsPresent reports whether itsNumber is listed in the record.
func (r AttendanceRecord) IsPresent(itsNumber string) bool {
	for _, its := range r.PresentStudents {
		if its == itsNumber {
			return true
		}
	}
	return false
}

// AttendanceStatus is the band a percentage falls into
type AttendanceStatus string

const (
	StatusGood    AttendanceStatus = "Good"
	StatusAverage AttendanceStatus = "Average"
	StatusPoor    AttendanceStatus = "Poor"
)

// StatusFor bands an attendance percentage.
func StatusFor(percentage int) AttendanceStatus {
	switch {
	case percentage >= 75:
		return StatusGood
	case percentage >= 50:
		return StatusAverage
	default:
		return StatusPoor
	}
}

// StudentAttendanceStat is the cumulative attendance of one enrolled student
type StudentAttendanceStat struct {
	ITSNumber            string           `json:"itsNumber"`
	Name                 string           `json:"name"`
	PhoneNumber          string           `json:"phoneNumber"`
	ClassesAttended      int              `json:"classesAttended"`
	TotalClasses         int              `json:"totalClasses"`
	AttendancePercentage int              `json:"attendancePercentage"`
	Status               AttendanceStatus `json:"status"`
}

// AttendanceStatsReport is the cumulative attendance of a whole sabaq
type AttendanceStatsReport struct {
	SabaqID      string                  `json:"sabaqId"`
	SabaqName    string                  `json:"sabaqName"`
	TotalClasses int                     `json:"totalClasses"`
	StudentStats []StudentAttendanceStat `json:"studentStats"`
}

// DaySummary splits a sabaq's roster into present and absent students for one date
type DaySummary struct {
	SabaqID   string    `json:"sabaqId"`
	SabaqName string    `json:"sabaqName"`
	Date      string    `json:"date"`
	Present   []Student `json:"present"`
	Absent    []Student `json:"absent"`
	Unknown   []Student `json:"unknown"` // marked present but no longer on the roster
}

// SessionRecord is an attendance record labelled with its sabaq's name
type SessionRecord struct {
	SabaqID         string   `json:"sabaqId"`
	SabaqName       string   `json:"sabaqName"`
	Date            string   `json:"date"`
	PresentStudents []string `json:"presentStudents"`
}

// SabaqSessions groups the recorded sessions of one sabaq, newest first
type SabaqSessions struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Records []SessionRecord `json:"records"`
}

// AttendanceOverview is every recorded session, newest first, plus the same
// sessions grouped by sabaq
type AttendanceOverview struct {
	Records []SessionRecord `json:"records"`
	Groups  []SabaqSessions `json:"groups"`
}
