package answerkey

// Official keys transcribed from the commission-released answer sheets.
// Question 86 of the UPPSC 2024 paper has no published answer; whether
// that is a data-entry gap is still unresolved, so it stays unkeyed.

func init() {
	register(ExamUPSC, 2023, mustLen(
		"AABDAABABBCCCAADABBBAACDA"+
			"DBCCCBCDCBAADBDABBCBCDCCB"+
			"ACCADCBCBDAADABAADDBDBDCD"+
			"DDABCDAAACCADDDADCCDBABCA",
		100, ExamUPSC, 2023))

	register(ExamUPSC, 2024, mustLen(
		"ABDCADABACABCBBADBBADCAAA"+
			"CCAADCADDABBDCBDCCBADCDBD"+
			"ADABABCDDADCCCDBABBCDBDCB"+
			"BCDCACBDDDDDDBBDBCABDAAAD",
		100, ExamUPSC, 2024))

	register(ExamUPPSC, 2024, mustLen(
		"CDBAADBCDCBCDBABCDBDCCAAB"+
			"DDCCBBCCDCCADCAADDCBBCABC"+
			"ADCCCDAACABADADCBBCACDBAC"+
			"CCCCBCDDBB-AABCCAAADDADAB"+
			"BCABADACBADDDBBACABDABCCA"+
			"DCCDABCDCBBCADBBCCCCBABDB",
		150, ExamUPPSC, 2024))
}
