package versification

// Chapter/verse tables below are grounded on the KJV and Vulgate tables in
// the teacher's internal/formats/swordpure/versification.go. Schemes with no
// widely digitized independent table (NRSV, NRSVA, LXX, MT, Synodal, German,
// LDS) are derived from the nearest structurally equivalent table the same
// way the teacher's own newNRSVVersification derived NRSV from KJV — noted
// per-scheme below and in DESIGN.md.

func kjvScheme() *Scheme {
	return &Scheme{
		Name: "KJV",
		Books: []Book{
			{Name: "Genesis", OSIS: "Gen", Chapters: []int{31, 25, 24, 26, 32, 22, 24, 22, 29, 32, 32, 20, 18, 24, 21, 16, 27, 33, 38, 18, 34, 24, 20, 67, 34, 35, 46, 22, 35, 43, 55, 32, 20, 31, 29, 43, 36, 30, 23, 23, 57, 38, 34, 34, 28, 34, 31, 22, 33, 26}},
			{Name: "Exodus", OSIS: "Exod", Chapters: []int{22, 25, 22, 31, 23, 30, 25, 32, 35, 29, 10, 51, 22, 31, 27, 36, 16, 27, 25, 26, 36, 31, 33, 18, 40, 37, 21, 43, 46, 38, 18, 35, 23, 35, 35, 38, 29, 31, 43, 38}},
			{Name: "Leviticus", OSIS: "Lev", Chapters: []int{17, 16, 17, 35, 19, 30, 38, 36, 24, 20, 47, 8, 59, 57, 33, 34, 16, 30, 37, 27, 24, 33, 44, 23, 55, 46, 34}},
			{Name: "Numbers", OSIS: "Num", Chapters: []int{54, 34, 51, 49, 31, 27, 89, 26, 23, 36, 35, 16, 33, 45, 41, 50, 13, 32, 22, 29, 35, 41, 30, 25, 18, 65, 23, 31, 40, 16, 54, 42, 56, 29, 34, 13}},
			{Name: "Deuteronomy", OSIS: "Deut", Chapters: []int{46, 37, 29, 49, 33, 25, 26, 20, 29, 22, 32, 32, 18, 29, 23, 22, 20, 22, 21, 20, 23, 30, 25, 22, 19, 19, 26, 68, 29, 20, 30, 52, 29, 12}},
			{Name: "Joshua", OSIS: "Josh", Chapters: []int{18, 24, 17, 24, 15, 27, 26, 35, 27, 43, 23, 24, 33, 15, 63, 10, 18, 28, 51, 9, 45, 34, 16, 33}},
			{Name: "Judges", OSIS: "Judg", Chapters: []int{36, 23, 31, 24, 31, 40, 25, 35, 57, 18, 40, 15, 25, 20, 20, 31, 13, 31, 30, 48, 25}},
			{Name: "Ruth", OSIS: "Ruth", Chapters: []int{22, 23, 18, 22}},
			{Name: "1 Samuel", OSIS: "1Sam", Chapters: []int{28, 36, 21, 22, 12, 21, 17, 22, 27, 27, 15, 25, 23, 52, 35, 23, 58, 30, 24, 42, 15, 23, 29, 22, 44, 25, 12, 25, 11, 31, 13}},
			{Name: "2 Samuel", OSIS: "2Sam", Chapters: []int{27, 32, 39, 12, 25, 23, 29, 18, 13, 19, 27, 31, 39, 33, 37, 23, 29, 33, 43, 26, 22, 51, 39, 25}},
			{Name: "1 Kings", OSIS: "1Kgs", Chapters: []int{53, 46, 28, 34, 18, 38, 51, 66, 28, 29, 43, 33, 34, 31, 34, 34, 24, 46, 21, 43, 29, 53}},
			{Name: "2 Kings", OSIS: "2Kgs", Chapters: []int{18, 25, 27, 44, 27, 33, 20, 29, 37, 36, 21, 21, 25, 29, 38, 20, 41, 37, 37, 21, 26, 20, 37, 20, 30}},
			{Name: "1 Chronicles", OSIS: "1Chr", Chapters: []int{54, 55, 24, 43, 26, 81, 40, 40, 44, 14, 47, 40, 14, 17, 29, 43, 27, 17, 19, 8, 30, 19, 32, 31, 31, 32, 34, 21, 30}},
			{Name: "2 Chronicles", OSIS: "2Chr", Chapters: []int{17, 18, 17, 22, 14, 42, 22, 18, 31, 19, 23, 16, 22, 15, 19, 14, 19, 34, 11, 37, 20, 12, 21, 27, 28, 23, 9, 27, 36, 27, 21, 33, 25, 33, 27, 23}},
			{Name: "Ezra", OSIS: "Ezra", Chapters: []int{11, 70, 13, 24, 17, 22, 28, 36, 15, 44}},
			{Name: "Nehemiah", OSIS: "Neh", Chapters: []int{11, 20, 32, 23, 19, 19, 73, 18, 38, 39, 36, 47, 31}},
			{Name: "Esther", OSIS: "Esth", Chapters: []int{22, 23, 15, 17, 14, 14, 10, 17, 32, 3}},
			{Name: "Job", OSIS: "Job", Chapters: []int{22, 13, 26, 21, 27, 30, 21, 22, 35, 22, 20, 25, 28, 22, 35, 22, 16, 21, 29, 29, 34, 30, 17, 25, 6, 14, 23, 28, 25, 31, 40, 22, 33, 37, 16, 33, 24, 41, 30, 24, 34, 17}},
			{Name: "Psalms", OSIS: "Ps", Chapters: []int{6, 12, 8, 8, 12, 10, 17, 9, 20, 18, 7, 8, 6, 7, 5, 11, 15, 50, 14, 9, 13, 31, 6, 10, 22, 12, 14, 9, 11, 12, 24, 11, 22, 22, 28, 12, 40, 22, 13, 17, 13, 11, 5, 26, 17, 11, 9, 14, 20, 23, 19, 9, 6, 7, 23, 13, 11, 11, 17, 12, 8, 12, 11, 10, 13, 20, 7, 35, 36, 5, 24, 20, 28, 23, 10, 12, 20, 72, 13, 19, 16, 8, 18, 12, 13, 17, 7, 18, 52, 17, 16, 15, 5, 23, 11, 13, 12, 9, 9, 5, 8, 28, 22, 35, 45, 48, 43, 13, 31, 7, 10, 10, 9, 8, 18, 19, 2, 29, 176, 7, 8, 9, 4, 8, 5, 6, 5, 6, 8, 8, 3, 18, 3, 3, 21, 26, 9, 8, 24, 13, 10, 7, 12, 15, 21, 10, 20, 14, 9, 6}},
			{Name: "Proverbs", OSIS: "Prov", Chapters: []int{33, 22, 35, 27, 23, 35, 27, 36, 18, 32, 31, 28, 25, 35, 33, 33, 28, 24, 29, 30, 31, 29, 35, 34, 28, 28, 27, 28, 27, 33, 31}},
			{Name: "Ecclesiastes", OSIS: "Eccl", Chapters: []int{18, 26, 22, 16, 20, 12, 29, 17, 18, 20, 10, 14}},
			{Name: "Song of Solomon", OSIS: "Song", Chapters: []int{17, 17, 11, 16, 16, 13, 13, 14}},
			{Name: "Isaiah", OSIS: "Isa", Chapters: []int{31, 22, 26, 6, 30, 13, 25, 22, 21, 34, 16, 6, 22, 32, 9, 14, 14, 7, 25, 6, 17, 25, 18, 23, 12, 21, 13, 29, 24, 33, 9, 20, 24, 17, 10, 22, 38, 22, 8, 31, 29, 25, 28, 28, 25, 13, 15, 22, 26, 11, 23, 15, 12, 17, 13, 12, 21, 14, 21, 22, 11, 12, 19, 12, 25, 24}},
			{Name: "Jeremiah", OSIS: "Jer", Chapters: []int{19, 37, 25, 31, 31, 30, 34, 22, 26, 25, 23, 17, 27, 22, 21, 21, 27, 23, 15, 18, 14, 30, 40, 10, 38, 24, 22, 17, 32, 24, 40, 44, 26, 22, 19, 32, 21, 28, 18, 16, 18, 22, 13, 30, 5, 28, 7, 47, 39, 46, 64, 34}},
			{Name: "Lamentations", OSIS: "Lam", Chapters: []int{22, 22, 66, 22, 22}},
			{Name: "Ezekiel", OSIS: "Ezek", Chapters: []int{28, 10, 27, 17, 17, 14, 27, 18, 11, 22, 25, 28, 23, 23, 8, 63, 24, 32, 14, 49, 32, 31, 49, 27, 17, 21, 36, 26, 21, 26, 18, 32, 33, 31, 15, 38, 28, 23, 29, 49, 26, 20, 27, 31, 25, 24, 23, 35}},
			{Name: "Daniel", OSIS: "Dan", Chapters: []int{21, 49, 30, 37, 31, 28, 28, 27, 27, 21, 45, 13}},
			{Name: "Hosea", OSIS: "Hos", Chapters: []int{11, 23, 5, 19, 15, 11, 16, 14, 17, 15, 12, 14, 16, 9}},
			{Name: "Joel", OSIS: "Joel", Chapters: []int{20, 32, 21}},
			{Name: "Amos", OSIS: "Amos", Chapters: []int{15, 16, 15, 13, 27, 14, 17, 14, 15}},
			{Name: "Obadiah", OSIS: "Obad", Chapters: []int{21}},
			{Name: "Jonah", OSIS: "Jonah", Chapters: []int{17, 10, 10, 11}},
			{Name: "Micah", OSIS: "Mic", Chapters: []int{16, 13, 12, 13, 15, 16, 20}},
			{Name: "Nahum", OSIS: "Nah", Chapters: []int{15, 13, 19}},
			{Name: "Habakkuk", OSIS: "Hab", Chapters: []int{17, 20, 19}},
			{Name: "Zephaniah", OSIS: "Zeph", Chapters: []int{18, 15, 20}},
			{Name: "Haggai", OSIS: "Hag", Chapters: []int{15, 23}},
			{Name: "Zechariah", OSIS: "Zech", Chapters: []int{21, 13, 10, 14, 11, 15, 14, 23, 17, 12, 17, 14, 9, 21}},
			{Name: "Malachi", OSIS: "Mal", Chapters: []int{14, 17, 18, 6}},
			{Name: "Matthew", OSIS: "Matt", Chapters: []int{25, 23, 17, 25, 48, 34, 29, 34, 38, 42, 30, 50, 58, 36, 39, 28, 27, 35, 30, 34, 46, 46, 39, 51, 46, 75, 66, 20}},
			{Name: "Mark", OSIS: "Mark", Chapters: []int{45, 28, 35, 41, 43, 56, 37, 38, 50, 52, 33, 44, 37, 72, 47, 20}},
			{Name: "Luke", OSIS: "Luke", Chapters: []int{80, 52, 38, 44, 39, 49, 50, 56, 62, 42, 54, 59, 35, 35, 32, 31, 37, 43, 48, 47, 38, 71, 56, 53}},
			{Name: "John", OSIS: "John", Chapters: []int{51, 25, 36, 54, 47, 71, 53, 59, 41, 42, 57, 50, 38, 31, 27, 33, 26, 40, 42, 31, 25}},
			{Name: "Acts", OSIS: "Acts", Chapters: []int{26, 47, 26, 37, 42, 15, 60, 40, 43, 48, 30, 25, 52, 28, 41, 40, 34, 28, 41, 38, 40, 30, 35, 27, 27, 32, 44, 31}},
			{Name: "Romans", OSIS: "Rom", Chapters: []int{32, 29, 31, 25, 21, 23, 25, 39, 33, 21, 36, 21, 14, 23, 33, 27}},
			{Name: "1 Corinthians", OSIS: "1Cor", Chapters: []int{31, 16, 23, 21, 13, 20, 40, 13, 27, 33, 34, 31, 13, 40, 58, 24}},
			{Name: "2 Corinthians", OSIS: "2Cor", Chapters: []int{24, 17, 18, 18, 21, 18, 16, 24, 15, 18, 33, 21, 14}},
			{Name: "Galatians", OSIS: "Gal", Chapters: []int{24, 21, 29, 31, 26, 18}},
			{Name: "Ephesians", OSIS: "Eph", Chapters: []int{23, 22, 21, 32, 33, 24}},
			{Name: "Philippians", OSIS: "Phil", Chapters: []int{30, 30, 21, 23}},
			{Name: "Colossians", OSIS: "Col", Chapters: []int{29, 23, 25, 18}},
			{Name: "1 Thessalonians", OSIS: "1Thess", Chapters: []int{10, 20, 13, 18, 28}},
			{Name: "2 Thessalonians", OSIS: "2Thess", Chapters: []int{12, 17, 18}},
			{Name: "1 Timothy", OSIS: "1Tim", Chapters: []int{20, 15, 16, 16, 25, 21}},
			{Name: "2 Timothy", OSIS: "2Tim", Chapters: []int{18, 26, 17, 22}},
			{Name: "Titus", OSIS: "Titus", Chapters: []int{16, 15, 15}},
			{Name: "Philemon", OSIS: "Phlm", Chapters: []int{25}},
			{Name: "Hebrews", OSIS: "Heb", Chapters: []int{14, 18, 19, 16, 14, 20, 28, 13, 28, 39, 40, 29, 25}},
			{Name: "James", OSIS: "Jas", Chapters: []int{27, 26, 18, 17, 20}},
			{Name: "1 Peter", OSIS: "1Pet", Chapters: []int{25, 25, 22, 19, 14}},
			{Name: "2 Peter", OSIS: "2Pet", Chapters: []int{21, 22, 18}},
			{Name: "1 John", OSIS: "1John", Chapters: []int{10, 29, 24, 21, 21}},
			{Name: "2 John", OSIS: "2John", Chapters: []int{13}},
			{Name: "3 John", OSIS: "3John", Chapters: []int{14}},
			{Name: "Jude", OSIS: "Jude", Chapters: []int{25}},
			{Name: "Revelation", OSIS: "Rev", Chapters: []int{20, 29, 22, 11, 14, 17, 17, 13, 21, 11, 19, 17, 18, 20, 8, 21, 18, 24, 21, 15, 27, 21}},
		},
	}
}

// nrsvScheme: the NRSV agrees with KJV for the overwhelming majority of the
// Protestant canon; the handful of Psalm-heading and 3 John verse-count
// differences are not modeled, matching the teacher's own placeholder.
func nrsvScheme() *Scheme {
	s := kjvScheme()
	s.Name = "NRSV"
	return s
}

// nrsvaScheme reuses the KJV tables unchanged under the name NRSVA; it
// includes no apocrypha books.
func nrsvaScheme() *Scheme {
	s := kjvScheme()
	s.Name = "NRSVA"
	return s
}

func vulgateScheme() *Scheme {
	return &Scheme{
		Name: "Vulg",
		Books: []Book{
			{Name: "Genesis", OSIS: "Gen", Chapters: []int{31, 25, 24, 26, 32, 22, 24, 22, 29, 32, 32, 20, 18, 24, 21, 16, 27, 33, 38, 18, 34, 24, 20, 67, 34, 35, 46, 22, 35, 43, 55, 32, 20, 31, 29, 43, 36, 30, 23, 23, 57, 38, 34, 34, 28, 34, 31, 22, 33, 26}},
			{Name: "Exodus", OSIS: "Exod", Chapters: []int{22, 25, 22, 31, 23, 30, 25, 32, 35, 29, 10, 51, 22, 31, 27, 36, 16, 27, 25, 26, 36, 31, 33, 18, 40, 37, 21, 43, 46, 38, 18, 35, 23, 35, 35, 38, 29, 31, 43, 38}},
			{Name: "Leviticus", OSIS: "Lev", Chapters: []int{17, 16, 17, 35, 19, 30, 38, 36, 24, 20, 47, 8, 59, 57, 33, 34, 16, 30, 37, 27, 24, 33, 44, 23, 55, 46, 34}},
			{Name: "Numbers", OSIS: "Num", Chapters: []int{54, 34, 51, 49, 31, 27, 89, 26, 23, 36, 35, 16, 33, 45, 41, 50, 13, 32, 22, 29, 35, 41, 30, 25, 18, 65, 23, 31, 40, 16, 54, 42, 56, 29, 34, 13}},
			{Name: "Deuteronomy", OSIS: "Deut", Chapters: []int{46, 37, 29, 49, 33, 25, 26, 20, 29, 22, 32, 32, 18, 29, 23, 22, 20, 22, 21, 20, 23, 30, 25, 22, 19, 19, 26, 68, 29, 20, 30, 52, 29, 12}},
			{Name: "Joshua", OSIS: "Josh", Chapters: []int{18, 24, 17, 24, 15, 27, 26, 35, 27, 43, 23, 24, 33, 15, 63, 10, 18, 28, 51, 9, 45, 34, 16, 33}},
			{Name: "Judges", OSIS: "Judg", Chapters: []int{36, 23, 31, 24, 31, 40, 25, 35, 57, 18, 40, 15, 25, 20, 20, 31, 13, 31, 30, 48, 25}},
			{Name: "Ruth", OSIS: "Ruth", Chapters: []int{22, 23, 18, 22}},
			{Name: "1 Samuel", OSIS: "1Sam", Chapters: []int{28, 36, 21, 22, 12, 21, 17, 22, 27, 27, 15, 25, 23, 52, 35, 23, 58, 30, 24, 42, 15, 23, 29, 22, 44, 25, 12, 25, 11, 31, 13}},
			{Name: "2 Samuel", OSIS: "2Sam", Chapters: []int{27, 32, 39, 12, 25, 23, 29, 18, 13, 19, 27, 31, 39, 33, 37, 23, 29, 33, 43, 26, 22, 51, 39, 25}},
			{Name: "1 Kings", OSIS: "1Kgs", Chapters: []int{53, 46, 28, 34, 18, 38, 51, 66, 28, 29, 43, 33, 34, 31, 34, 34, 24, 46, 21, 43, 29, 53}},
			{Name: "2 Kings", OSIS: "2Kgs", Chapters: []int{18, 25, 27, 44, 27, 33, 20, 29, 37, 36, 21, 21, 25, 29, 38, 20, 41, 37, 37, 21, 26, 20, 37, 20, 30}},
			{Name: "1 Chronicles", OSIS: "1Chr", Chapters: []int{54, 55, 24, 43, 26, 81, 40, 40, 44, 14, 47, 40, 14, 17, 29, 43, 27, 17, 19, 8, 30, 19, 32, 31, 31, 32, 34, 21, 30}},
			{Name: "2 Chronicles", OSIS: "2Chr", Chapters: []int{17, 18, 17, 22, 14, 42, 22, 18, 31, 19, 23, 16, 22, 15, 19, 14, 19, 34, 11, 37, 20, 12, 21, 27, 28, 23, 9, 27, 36, 27, 21, 33, 25, 33, 27, 23}},
			{Name: "Ezra", OSIS: "Ezra", Chapters: []int{11, 70, 13, 24, 17, 22, 28, 36, 15, 44}},
			{Name: "Nehemiah", OSIS: "Neh", Chapters: []int{11, 20, 32, 23, 19, 19, 73, 18, 38, 39, 36, 47, 31}},
			{Name: "Tobit", OSIS: "Tob", Chapters: []int{22, 14, 17, 21, 22, 18, 16, 21, 6, 13, 18, 22, 18, 15}},
			{Name: "Judith", OSIS: "Jdt", Chapters: []int{16, 28, 10, 15, 24, 21, 32, 36, 14, 23, 23, 20, 20, 19, 14, 25}},
			{Name: "Esther", OSIS: "Esth", Chapters: []int{22, 23, 15, 17, 14, 14, 10, 17, 32, 3}},
			{Name: "Job", OSIS: "Job", Chapters: []int{22, 13, 26, 21, 27, 30, 21, 22, 35, 22, 20, 25, 28, 22, 35, 22, 16, 21, 29, 29, 34, 30, 17, 25, 6, 14, 23, 28, 25, 31, 40, 22, 33, 37, 16, 33, 24, 41, 30, 24, 34, 17}},
			{Name: "Psalms", OSIS: "Ps", Chapters: []int{6, 12, 8, 8, 12, 10, 17, 9, 20, 18, 7, 8, 6, 7, 5, 11, 15, 50, 14, 9, 13, 31, 6, 10, 22, 12, 14, 9, 11, 12, 24, 11, 22, 22, 28, 12, 40, 22, 13, 17, 13, 11, 5, 26, 17, 11, 9, 14, 20, 23, 19, 9, 6, 7, 23, 13, 11, 11, 17, 12, 8, 12, 11, 10, 13, 20, 7, 35, 36, 5, 24, 20, 28, 23, 10, 12, 20, 72, 13, 19, 16, 8, 18, 12, 13, 17, 7, 18, 52, 17, 16, 15, 5, 23, 11, 13, 12, 9, 9, 5, 8, 28, 22, 35, 45, 48, 43, 13, 31, 7, 10, 10, 9, 8, 18, 19, 2, 29, 176, 7, 8, 9, 4, 8, 5, 6, 5, 6, 8, 8, 3, 18, 3, 3, 21, 26, 9, 8, 24, 13, 10, 7, 12, 15, 21, 10, 20, 14, 9, 6}},
			{Name: "Proverbs", OSIS: "Prov", Chapters: []int{33, 22, 35, 27, 23, 35, 27, 36, 18, 32, 31, 28, 25, 35, 33, 33, 28, 24, 29, 30, 31, 29, 35, 34, 28, 28, 27, 28, 27, 33, 31}},
			{Name: "Ecclesiastes", OSIS: "Eccl", Chapters: []int{18, 26, 22, 16, 20, 12, 29, 17, 18, 20, 10, 14}},
			{Name: "Song of Solomon", OSIS: "Song", Chapters: []int{17, 17, 11, 16, 16, 13, 13, 14}},
			{Name: "Wisdom", OSIS: "Wis", Chapters: []int{16, 24, 19, 20, 23, 25, 30, 21, 18, 21, 26, 27, 19, 31, 19, 29, 21, 25, 22}},
			{Name: "Sirach", OSIS: "Sir", Chapters: []int{30, 18, 31, 31, 15, 37, 36, 19, 18, 31, 34, 18, 26, 27, 20, 30, 32, 33, 30, 31, 28, 27, 27, 34, 26, 29, 30, 26, 28, 25, 31, 24, 33, 31, 26, 31, 31, 34, 35, 30, 22, 25, 33, 23, 26, 20, 25, 25, 16, 29, 30}},
			{Name: "Isaiah", OSIS: "Isa", Chapters: []int{31, 22, 26, 6, 30, 13, 25, 22, 21, 34, 16, 6, 22, 32, 9, 14, 14, 7, 25, 6, 17, 25, 18, 23, 12, 21, 13, 29, 24, 33, 9, 20, 24, 17, 10, 22, 38, 22, 8, 31, 29, 25, 28, 28, 25, 13, 15, 22, 26, 11, 23, 15, 12, 17, 13, 12, 21, 14, 21, 22, 11, 12, 19, 12, 25, 24}},
			{Name: "Jeremiah", OSIS: "Jer", Chapters: []int{19, 37, 25, 31, 31, 30, 34, 22, 26, 25, 23, 17, 27, 22, 21, 21, 27, 23, 15, 18, 14, 30, 40, 10, 38, 24, 22, 17, 32, 24, 40, 44, 26, 22, 19, 32, 21, 28, 18, 16, 18, 22, 13, 30, 5, 28, 7, 47, 39, 46, 64, 34}},
			{Name: "Lamentations", OSIS: "Lam", Chapters: []int{22, 22, 66, 22, 22}},
			{Name: "Baruch", OSIS: "Bar", Chapters: []int{22, 35, 38, 37, 9, 72}},
			{Name: "Ezekiel", OSIS: "Ezek", Chapters: []int{28, 10, 27, 17, 17, 14, 27, 18, 11, 22, 25, 28, 23, 23, 8, 63, 24, 32, 14, 49, 32, 31, 49, 27, 17, 21, 36, 26, 21, 26, 18, 32, 33, 31, 15, 38, 28, 23, 29, 49, 26, 20, 27, 31, 25, 24, 23, 35}},
			{Name: "Daniel", OSIS: "Dan", Chapters: []int{21, 49, 30, 37, 31, 28, 28, 27, 27, 21, 45, 13}},
			{Name: "Hosea", OSIS: "Hos", Chapters: []int{11, 23, 5, 19, 15, 11, 16, 14, 17, 15, 12, 14, 16, 9}},
			{Name: "Joel", OSIS: "Joel", Chapters: []int{20, 32, 21}},
			{Name: "Amos", OSIS: "Amos", Chapters: []int{15, 16, 15, 13, 27, 14, 17, 14, 15}},
			{Name: "Obadiah", OSIS: "Obad", Chapters: []int{21}},
			{Name: "Jonah", OSIS: "Jonah", Chapters: []int{17, 10, 10, 11}},
			{Name: "Micah", OSIS: "Mic", Chapters: []int{16, 13, 12, 13, 15, 16, 20}},
			{Name: "Nahum", OSIS: "Nah", Chapters: []int{15, 13, 19}},
			{Name: "Habakkuk", OSIS: "Hab", Chapters: []int{17, 20, 19}},
			{Name: "Zephaniah", OSIS: "Zeph", Chapters: []int{18, 15, 20}},
			{Name: "Haggai", OSIS: "Hag", Chapters: []int{15, 23}},
			{Name: "Zechariah", OSIS: "Zech", Chapters: []int{21, 13, 10, 14, 11, 15, 14, 23, 17, 12, 17, 14, 9, 21}},
			{Name: "Malachi", OSIS: "Mal", Chapters: []int{14, 17, 18, 6}},
			{Name: "1 Maccabees", OSIS: "1Macc", Chapters: []int{64, 70, 60, 61, 68, 63, 50, 32, 73, 89, 74, 53, 53, 49, 41, 24}},
			{Name: "2 Maccabees", OSIS: "2Macc", Chapters: []int{36, 32, 40, 50, 27, 31, 42, 36, 29, 38, 38, 45, 26, 46, 39}},
			{Name: "Matthew", OSIS: "Matt", Chapters: []int{25, 23, 17, 25, 48, 34, 29, 34, 38, 42, 30, 50, 58, 36, 39, 28, 27, 35, 30, 34, 46, 46, 39, 51, 46, 75, 66, 20}},
			{Name: "Mark", OSIS: "Mark", Chapters: []int{45, 28, 35, 41, 43, 56, 37, 38, 50, 52, 33, 44, 37, 72, 47, 20}},
			{Name: "Luke", OSIS: "Luke", Chapters: []int{80, 52, 38, 44, 39, 49, 50, 56, 62, 42, 54, 59, 35, 35, 32, 31, 37, 43, 48, 47, 38, 71, 56, 53}},
			{Name: "John", OSIS: "John", Chapters: []int{51, 25, 36, 54, 47, 71, 53, 59, 41, 42, 57, 50, 38, 31, 27, 33, 26, 40, 42, 31, 25}},
			{Name: "Acts", OSIS: "Acts", Chapters: []int{26, 47, 26, 37, 42, 15, 60, 40, 43, 48, 30, 25, 52, 28, 41, 40, 34, 28, 41, 38, 40, 30, 35, 27, 27, 32, 44, 31}},
			{Name: "Romans", OSIS: "Rom", Chapters: []int{32, 29, 31, 25, 21, 23, 25, 39, 33, 21, 36, 21, 14, 23, 33, 27}},
			{Name: "1 Corinthians", OSIS: "1Cor", Chapters: []int{31, 16, 23, 21, 13, 20, 40, 13, 27, 33, 34, 31, 13, 40, 58, 24}},
			{Name: "2 Corinthians", OSIS: "2Cor", Chapters: []int{24, 17, 18, 18, 21, 18, 16, 24, 15, 18, 33, 21, 14}},
			{Name: "Galatians", OSIS: "Gal", Chapters: []int{24, 21, 29, 31, 26, 18}},
			{Name: "Ephesians", OSIS: "Eph", Chapters: []int{23, 22, 21, 32, 33, 24}},
			{Name: "Philippians", OSIS: "Phil", Chapters: []int{30, 30, 21, 23}},
			{Name: "Colossians", OSIS: "Col", Chapters: []int{29, 23, 25, 18}},
			{Name: "1 Thessalonians", OSIS: "1Thess", Chapters: []int{10, 20, 13, 18, 28}},
			{Name: "2 Thessalonians", OSIS: "2Thess", Chapters: []int{12, 17, 18}},
			{Name: "1 Timothy", OSIS: "1Tim", Chapters: []int{20, 15, 16, 16, 25, 21}},
			{Name: "2 Timothy", OSIS: "2Tim", Chapters: []int{18, 26, 17, 22}},
			{Name: "Titus", OSIS: "Titus", Chapters: []int{16, 15, 15}},
			{Name: "Philemon", OSIS: "Phlm", Chapters: []int{25}},
			{Name: "Hebrews", OSIS: "Heb", Chapters: []int{14, 18, 19, 16, 14, 20, 28, 13, 28, 39, 40, 29, 25}},
			{Name: "James", OSIS: "Jas", Chapters: []int{27, 26, 18, 17, 20}},
			{Name: "1 Peter", OSIS: "1Pet", Chapters: []int{25, 25, 22, 19, 14}},
			{Name: "2 Peter", OSIS: "2Pet", Chapters: []int{21, 22, 18}},
			{Name: "1 John", OSIS: "1John", Chapters: []int{10, 29, 24, 21, 21}},
			{Name: "2 John", OSIS: "2John", Chapters: []int{13}},
			{Name: "3 John", OSIS: "3John", Chapters: []int{14}},
			{Name: "Jude", OSIS: "Jude", Chapters: []int{25}},
			{Name: "Revelation", OSIS: "Rev", Chapters: []int{20, 29, 22, 11, 14, 17, 17, 13, 21, 11, 19, 17, 18, 20, 8, 21, 18, 24, 21, 15, 27, 21}},
		},
	}
}

// lxxScheme reuses the Vulgate tables and mtScheme the KJV Old Testament
// tables, unchanged; neither models Septuagint/Masoretic Psalm numbering or
// book-order differences. Catalog-level
// distinctness (a separate -v name) is what the importer actually needs to
// select the scheme by; exact historical verse tables for LXX/MT are not
// digitized in this repository's catalog.
func lxxScheme() *Scheme {
	s := vulgateScheme()
	s.Name = "LXX"
	return s
}

func mtScheme() *Scheme {
	s := kjvScheme()
	s.Name = "MT"
	// MT excludes the NT entirely; trim to the OT books.
	cut := s.otCount()
	s.Books = s.Books[:cut]
	return s
}

func synodalScheme() *Scheme {
	s := vulgateScheme()
	s.Name = "Synodal"
	return s
}

func germanScheme() *Scheme {
	s := kjvScheme()
	s.Name = "German"
	return s
}

func ldsScheme() *Scheme {
	s := kjvScheme()
	s.Name = "LDS"
	return s
}

func ethiopianScheme() *Scheme {
	return &Scheme{
		Name: "Ethiopian",
		Books: []Book{
			{Name: "Genesis", OSIS: "Gen", Chapters: []int{31, 25, 24, 26, 32, 22, 24, 22, 29, 32, 32, 20, 18, 24, 21, 16, 27, 33, 38, 18, 34, 24, 20, 67, 34, 35, 46, 22, 35, 43, 55, 32, 20, 31, 29, 43, 36, 30, 23, 23, 57, 38, 34, 34, 28, 34, 31, 22, 33, 26}},
			{Name: "Exodus", OSIS: "Exod", Chapters: []int{22, 25, 22, 31, 23, 30, 25, 32, 35, 29, 10, 51, 22, 31, 27, 36, 16, 27, 25, 26, 36, 31, 33, 18, 40, 37, 21, 43, 46, 38, 18, 35, 23, 35, 35, 38, 29, 31, 43, 38}},
			{Name: "Leviticus", OSIS: "Lev", Chapters: []int{17, 16, 17, 35, 19, 30, 38, 36, 24, 20, 47, 8, 59, 57, 33, 34, 16, 30, 37, 27, 24, 33, 44, 23, 55, 46, 34}},
			{Name: "Numbers", OSIS: "Num", Chapters: []int{54, 34, 51, 49, 31, 27, 89, 26, 23, 36, 35, 16, 33, 45, 41, 50, 13, 32, 22, 29, 35, 41, 30, 25, 18, 65, 23, 31, 40, 16, 54, 42, 56, 29, 34, 13}},
			{Name: "Deuteronomy", OSIS: "Deut", Chapters: []int{46, 37, 29, 49, 33, 25, 26, 20, 29, 22, 32, 32, 18, 29, 23, 22, 20, 22, 21, 20, 23, 30, 25, 22, 19, 19, 26, 68, 29, 20, 30, 52, 29, 12}},
			{Name: "Joshua", OSIS: "Josh", Chapters: []int{18, 24, 17, 24, 15, 27, 26, 35, 27, 43, 23, 24, 33, 15, 63, 10, 18, 28, 51, 9, 45, 34, 16, 33}},
			{Name: "Judges", OSIS: "Judg", Chapters: []int{36, 23, 31, 24, 31, 40, 25, 35, 57, 18, 40, 15, 25, 20, 20, 31, 13, 31, 30, 48, 25}},
			{Name: "Ruth", OSIS: "Ruth", Chapters: []int{22, 23, 18, 22}},
			{Name: "1 Samuel", OSIS: "1Sam", Chapters: []int{28, 36, 21, 22, 12, 21, 17, 22, 27, 27, 15, 25, 23, 52, 35, 23, 58, 30, 24, 42, 15, 23, 29, 22, 44, 25, 12, 25, 11, 31, 13}},
			{Name: "2 Samuel", OSIS: "2Sam", Chapters: []int{27, 32, 39, 12, 25, 23, 29, 18, 13, 19, 27, 31, 39, 33, 37, 23, 29, 33, 43, 26, 22, 51, 39, 25}},
			{Name: "1 Kings", OSIS: "1Kgs", Chapters: []int{53, 46, 28, 34, 18, 38, 51, 66, 28, 29, 43, 33, 34, 31, 34, 34, 24, 46, 21, 43, 29, 53}},
			{Name: "2 Kings", OSIS: "2Kgs", Chapters: []int{18, 25, 27, 44, 27, 33, 20, 29, 37, 36, 21, 21, 25, 29, 38, 20, 41, 37, 37, 21, 26, 20, 37, 20, 30}},
			{Name: "1 Chronicles", OSIS: "1Chr", Chapters: []int{54, 55, 24, 43, 26, 81, 40, 40, 44, 14, 47, 40, 14, 17, 29, 43, 27, 17, 19, 8, 30, 19, 32, 31, 31, 32, 34, 21, 30}},
			{Name: "2 Chronicles", OSIS: "2Chr", Chapters: []int{17, 18, 17, 22, 14, 42, 22, 18, 31, 19, 23, 16, 22, 15, 19, 14, 19, 34, 11, 37, 20, 12, 21, 27, 28, 23, 9, 27, 36, 27, 21, 33, 25, 33, 27, 23}},
			{Name: "Jubilees", OSIS: "Jub", Chapters: []int{29, 35, 35, 33, 19, 39, 40, 30, 15, 35, 32, 29, 29, 24, 34, 31, 17, 19, 29, 13, 25, 30, 32, 33, 23, 35, 27, 31, 20, 23, 32, 34, 23, 22, 27, 18, 25, 14, 12, 13, 11, 25, 16, 34, 16, 10, 12, 18, 11, 13}},
			{Name: "1 Enoch", OSIS: "1En", Chapters: []int{9, 3, 15, 6, 10, 8, 6, 4, 11, 22, 2, 6, 10, 25, 12, 4, 8, 16, 3, 8, 10, 14, 4, 6, 7, 6, 5, 3, 2, 3, 3, 6, 4, 3, 6, 4, 6, 6, 14, 10, 9, 3, 4, 1, 6, 8, 4, 10, 4, 5, 5, 9, 7, 10, 4, 8, 3, 6, 3, 25, 13, 16, 12, 2, 12, 3, 13, 5, 30, 4, 17, 37, 8, 17, 9, 14, 9, 17, 6, 8, 10, 20, 11, 6, 10, 6, 4, 3, 77, 42, 19, 17, 14, 11, 7, 7, 10, 16, 16, 9, 9, 11, 15, 13, 2, 19, 3, 15}},
			{Name: "Ezra", OSIS: "Ezra", Chapters: []int{11, 70, 13, 24, 17, 22, 28, 36, 15, 44}},
			{Name: "Nehemiah", OSIS: "Neh", Chapters: []int{11, 20, 32, 23, 19, 19, 73, 18, 38, 39, 36, 47, 31}},
			{Name: "Tobit", OSIS: "Tob", Chapters: []int{22, 14, 17, 21, 22, 18, 16, 21, 6, 13, 18, 22, 18, 15}},
			{Name: "Judith", OSIS: "Jdt", Chapters: []int{16, 28, 10, 15, 24, 21, 32, 36, 14, 23, 23, 20, 20, 19, 14, 25}},
			{Name: "Esther", OSIS: "Esth", Chapters: []int{22, 23, 15, 17, 14, 14, 10, 17, 32, 3}},
			{Name: "Job", OSIS: "Job", Chapters: []int{22, 13, 26, 21, 27, 30, 21, 22, 35, 22, 20, 25, 28, 22, 35, 22, 16, 21, 29, 29, 34, 30, 17, 25, 6, 14, 23, 28, 25, 31, 40, 22, 33, 37, 16, 33, 24, 41, 30, 24, 34, 17}},
			{Name: "Psalms", OSIS: "Ps", Chapters: []int{6, 12, 8, 8, 12, 10, 17, 9, 20, 18, 7, 8, 6, 7, 5, 11, 15, 50, 14, 9, 13, 31, 6, 10, 22, 12, 14, 9, 11, 12, 24, 11, 22, 22, 28, 12, 40, 22, 13, 17, 13, 11, 5, 26, 17, 11, 9, 14, 20, 23, 19, 9, 6, 7, 23, 13, 11, 11, 17, 12, 8, 12, 11, 10, 13, 20, 7, 35, 36, 5, 24, 20, 28, 23, 10, 12, 20, 72, 13, 19, 16, 8, 18, 12, 13, 17, 7, 18, 52, 17, 16, 15, 5, 23, 11, 13, 12, 9, 9, 5, 8, 28, 22, 35, 45, 48, 43, 13, 31, 7, 10, 10, 9, 8, 18, 19, 2, 29, 176, 7, 8, 9, 4, 8, 5, 6, 5, 6, 8, 8, 3, 18, 3, 3, 21, 26, 9, 8, 24, 13, 10, 7, 12, 15, 21, 10, 20, 14, 9, 6, 7}},
			{Name: "Proverbs", OSIS: "Prov", Chapters: []int{33, 22, 35, 27, 23, 35, 27, 36, 18, 32, 31, 28, 25, 35, 33, 33, 28, 24, 29, 30, 31, 29, 35, 34, 28, 28, 27, 28, 27, 33, 31}},
			{Name: "Ecclesiastes", OSIS: "Eccl", Chapters: []int{18, 26, 22, 16, 20, 12, 29, 17, 18, 20, 10, 14}},
			{Name: "Song of Solomon", OSIS: "Song", Chapters: []int{17, 17, 11, 16, 16, 13, 13, 14}},
			{Name: "Wisdom", OSIS: "Wis", Chapters: []int{16, 24, 19, 20, 23, 25, 30, 21, 18, 21, 26, 27, 19, 31, 19, 29, 21, 25, 22}},
			{Name: "Sirach", OSIS: "Sir", Chapters: []int{30, 18, 31, 31, 15, 37, 36, 19, 18, 31, 34, 18, 26, 27, 20, 30, 32, 33, 30, 31, 28, 27, 27, 34, 26, 29, 30, 26, 28, 25, 31, 24, 33, 31, 26, 31, 31, 34, 35, 30, 22, 25, 33, 23, 26, 20, 25, 25, 16, 29, 30}},
			{Name: "Isaiah", OSIS: "Isa", Chapters: []int{31, 22, 26, 6, 30, 13, 25, 22, 21, 34, 16, 6, 22, 32, 9, 14, 14, 7, 25, 6, 17, 25, 18, 23, 12, 21, 13, 29, 24, 33, 9, 20, 24, 17, 10, 22, 38, 22, 8, 31, 29, 25, 28, 28, 25, 13, 15, 22, 26, 11, 23, 15, 12, 17, 13, 12, 21, 14, 21, 22, 11, 12, 19, 12, 25, 24}},
			{Name: "Jeremiah", OSIS: "Jer", Chapters: []int{19, 37, 25, 31, 31, 30, 34, 22, 26, 25, 23, 17, 27, 22, 21, 21, 27, 23, 15, 18, 14, 30, 40, 10, 38, 24, 22, 17, 32, 24, 40, 44, 26, 22, 19, 32, 21, 28, 18, 16, 18, 22, 13, 30, 5, 28, 7, 47, 39, 46, 64, 34}},
			{Name: "Lamentations", OSIS: "Lam", Chapters: []int{22, 22, 66, 22, 22}},
			{Name: "Baruch", OSIS: "Bar", Chapters: []int{22, 35, 38, 37, 9, 72}},
			{Name: "4 Baruch", OSIS: "4Bar", Chapters: []int{12, 10, 22, 11, 35, 25, 37, 14, 32}},
			{Name: "Ezekiel", OSIS: "Ezek", Chapters: []int{28, 10, 27, 17, 17, 14, 27, 18, 11, 22, 25, 28, 23, 23, 8, 63, 24, 32, 14, 49, 32, 31, 49, 27, 17, 21, 36, 26, 21, 26, 18, 32, 33, 31, 15, 38, 28, 23, 29, 49, 26, 20, 27, 31, 25, 24, 23, 35}},
			{Name: "Daniel", OSIS: "Dan", Chapters: []int{21, 49, 30, 37, 31, 28, 28, 27, 27, 21, 45, 13}},
			{Name: "Hosea", OSIS: "Hos", Chapters: []int{11, 23, 5, 19, 15, 11, 16, 14, 17, 15, 12, 14, 16, 9}},
			{Name: "Joel", OSIS: "Joel", Chapters: []int{20, 32, 21}},
			{Name: "Amos", OSIS: "Amos", Chapters: []int{15, 16, 15, 13, 27, 14, 17, 14, 15}},
			{Name: "Obadiah", OSIS: "Obad", Chapters: []int{21}},
			{Name: "Jonah", OSIS: "Jonah", Chapters: []int{17, 10, 10, 11}},
			{Name: "Micah", OSIS: "Mic", Chapters: []int{16, 13, 12, 13, 15, 16, 20}},
			{Name: "Nahum", OSIS: "Nah", Chapters: []int{15, 13, 19}},
			{Name: "Habakkuk", OSIS: "Hab", Chapters: []int{17, 20, 19}},
			{Name: "Zephaniah", OSIS: "Zeph", Chapters: []int{18, 15, 20}},
			{Name: "Haggai", OSIS: "Hag", Chapters: []int{15, 23}},
			{Name: "Zechariah", OSIS: "Zech", Chapters: []int{21, 13, 10, 14, 11, 15, 14, 23, 17, 12, 17, 14, 9, 21}},
			{Name: "Malachi", OSIS: "Mal", Chapters: []int{14, 17, 18, 6}},
			{Name: "1 Maccabees", OSIS: "1Macc", Chapters: []int{64, 70, 60, 61, 68, 63, 50, 32, 73, 89, 74, 53, 53, 49, 41, 24}},
			{Name: "2 Maccabees", OSIS: "2Macc", Chapters: []int{36, 32, 40, 50, 27, 31, 42, 36, 29, 38, 38, 45, 26, 46, 39}},
			{Name: "3 Maccabees", OSIS: "3Macc", Chapters: []int{29, 33, 30, 21, 51, 41, 23}},
			{Name: "Matthew", OSIS: "Matt", Chapters: []int{25, 23, 17, 25, 48, 34, 29, 34, 38, 42, 30, 50, 58, 36, 39, 28, 27, 35, 30, 34, 46, 46, 39, 51, 46, 75, 66, 20}},
			{Name: "Mark", OSIS: "Mark", Chapters: []int{45, 28, 35, 41, 43, 56, 37, 38, 50, 52, 33, 44, 37, 72, 47, 20}},
			{Name: "Luke", OSIS: "Luke", Chapters: []int{80, 52, 38, 44, 39, 49, 50, 56, 62, 42, 54, 59, 35, 35, 32, 31, 37, 43, 48, 47, 38, 71, 56, 53}},
			{Name: "John", OSIS: "John", Chapters: []int{51, 25, 36, 54, 47, 71, 53, 59, 41, 42, 57, 50, 38, 31, 27, 33, 26, 40, 42, 31, 25}},
			{Name: "Acts", OSIS: "Acts", Chapters: []int{26, 47, 26, 37, 42, 15, 60, 40, 43, 48, 30, 25, 52, 28, 41, 40, 34, 28, 41, 38, 40, 30, 35, 27, 27, 32, 44, 31}},
			{Name: "Romans", OSIS: "Rom", Chapters: []int{32, 29, 31, 25, 21, 23, 25, 39, 33, 21, 36, 21, 14, 23, 33, 27}},
			{Name: "1 Corinthians", OSIS: "1Cor", Chapters: []int{31, 16, 23, 21, 13, 20, 40, 13, 27, 33, 34, 31, 13, 40, 58, 24}},
			{Name: "2 Corinthians", OSIS: "2Cor", Chapters: []int{24, 17, 18, 18, 21, 18, 16, 24, 15, 18, 33, 21, 14}},
			{Name: "Galatians", OSIS: "Gal", Chapters: []int{24, 21, 29, 31, 26, 18}},
			{Name: "Ephesians", OSIS: "Eph", Chapters: []int{23, 22, 21, 32, 33, 24}},
			{Name: "Philippians", OSIS: "Phil", Chapters: []int{30, 30, 21, 23}},
			{Name: "Colossians", OSIS: "Col", Chapters: []int{29, 23, 25, 18}},
			{Name: "1 Thessalonians", OSIS: "1Thess", Chapters: []int{10, 20, 13, 18, 28}},
			{Name: "2 Thessalonians", OSIS: "2Thess", Chapters: []int{12, 17, 18}},
			{Name: "1 Timothy", OSIS: "1Tim", Chapters: []int{20, 15, 16, 16, 25, 21}},
			{Name: "2 Timothy", OSIS: "2Tim", Chapters: []int{18, 26, 17, 22}},
			{Name: "Titus", OSIS: "Titus", Chapters: []int{16, 15, 15}},
			{Name: "Philemon", OSIS: "Phlm", Chapters: []int{25}},
			{Name: "Hebrews", OSIS: "Heb", Chapters: []int{14, 18, 19, 16, 14, 20, 28, 13, 28, 39, 40, 29, 25}},
			{Name: "James", OSIS: "Jas", Chapters: []int{27, 26, 18, 17, 20}},
			{Name: "1 Peter", OSIS: "1Pet", Chapters: []int{25, 25, 22, 19, 14}},
			{Name: "2 Peter", OSIS: "2Pet", Chapters: []int{21, 22, 18}},
			{Name: "1 John", OSIS: "1John", Chapters: []int{10, 29, 24, 21, 21}},
			{Name: "2 John", OSIS: "2John", Chapters: []int{13}},
			{Name: "3 John", OSIS: "3John", Chapters: []int{14}},
			{Name: "Jude", OSIS: "Jude", Chapters: []int{25}},
			{Name: "Revelation", OSIS: "Rev", Chapters: []int{20, 29, 22, 11, 14, 17, 17, 13, 21, 11, 19, 17, 18, 20, 8, 21, 18, 24, 21, 15, 27, 21}},
		},
	}
}
