package db

import "asbaaq-attendance/models"

// DefaultAsbaaq is the roster used when nothing has been persisted yet.
func DefaultAsbaaq() []models.Sabaq {
	var (
		ahmed   = models.Student{ITSNumber: "12345678", Name: "Ahmed Ali", PhoneNumber: "+1234567890"}
		fatima  = models.Student{ITSNumber: "23456789", Name: "Fatima Khan", PhoneNumber: "+2345678901"}
		zainab  = models.Student{ITSNumber: "34567890", Name: "Zainab Hussein", PhoneNumber: "+3456789012"}
		ibrahim = models.Student{ITSNumber: "45678901", Name: "Ibrahim Patel", PhoneNumber: "+4567890123"}
		maryam  = models.Student{ITSNumber: "56789012", Name: "Maryam Sheikh", PhoneNumber: "+5678901234"}
		yusuf   = models.Student{ITSNumber: "67890123", Name: "Yusuf Rahman", PhoneNumber: "+6789012345"}
		aisha   = models.Student{ITSNumber: "78901234", Name: "Aisha Malik", PhoneNumber: "+7890123456"}
		hassan  = models.Student{ITSNumber: "89012345", Name: "Hassan Ahmed", PhoneNumber: "+8901234567"}
		khadija = models.Student{ITSNumber: "90123456", Name: "Khadija Omar", PhoneNumber: "+9012345678"}
	)

	return []models.Sabaq{
		{ID: "sabaq-1", Name: "Islamic History", EnrolledStudents: []models.Student{ahmed, fatima, zainab, ibrahim, maryam}},
		{ID: "sabaq-2", Name: "Quranic Studies", EnrolledStudents: []models.Student{ahmed, fatima, zainab, yusuf, aisha}},
		{ID: "sabaq-3", Name: "Arabic Language", EnrolledStudents: []models.Student{ibrahim, maryam, yusuf, aisha, hassan}},
		{ID: "sabaq-4", Name: "Islamic Ethics", EnrolledStudents: []models.Student{ahmed, maryam, yusuf, hassan, khadija}},
	}
}
