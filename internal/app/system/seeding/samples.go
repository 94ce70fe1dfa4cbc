package seeding

// samples holds example documents per collection, in API payload form.
var samples = map[string][]string{
	"achievements": {
		`{"title": "100 Trees Planted at Chimwasongwe", "description": "Community members planted indigenous trees around the school grounds.", "category": "environment", "year": 2023, "location": "Chimwasongwe", "beneficiaries": 450, "featured": true}`,
		`{"title": "Borehole Commissioned in Mtsiliza", "description": "A solar-powered borehole now serves three villages.", "category": "water", "year": 2022, "location": "Mtsiliza", "beneficiaries": 1200}`,
	},
	"projects": {
		`{"title": "Clean Water for Mtsiliza", "summary": "Boreholes and hygiene training for peri-urban households.", "description": "<p>We drill and maintain boreholes with village water committees.</p>", "category": "water-sanitation", "status": "ongoing", "location": "Lilongwe", "startDate": "2022-03-01", "beneficiaries": 3000, "featured": true}`,
		`{"title": "Girls Education Bursaries", "summary": "School fees and materials for secondary school girls.", "category": "education", "status": "ongoing", "location": "Dowa", "startDate": "2021-01-10", "beneficiaries": 85}`,
	},
	"voices": {
		`{"name": "Grace Banda", "role": "Water committee chair", "quote": "We no longer walk two hours for water. Our children are in school on time.", "location": "Mtsiliza", "featured": true}`,
		`{"name": "Chikondi Phiri", "role": "Bursary student", "quote": "The bursary kept me in school. Next year I start nursing college."}`,
	},
	"blogs": {
		`{"title": "Why Village Water Committees Work", "excerpt": "Ownership is what keeps a borehole running after the drill rig leaves.", "content": "<p>Every borehole we fund is handed to an elected committee.</p>", "author": "Mthunzi Trust", "category": "water", "tags": ["water", "community"], "publishedAt": "2024-02-14"}`,
	},
	"programs": {
		`{"title": "Education", "summary": "Bursaries, school feeding and teacher support.", "icon": "book", "highlights": ["Bursaries", "School feeding"], "order": 1}`,
		`{"title": "Health", "summary": "Community health outreach and maternal care.", "icon": "heart", "highlights": ["Mobile clinics"], "order": 2}`,
		`{"title": "Water and Sanitation", "summary": "Boreholes, latrines and hygiene education.", "icon": "droplet", "order": 3}`,
	},
	"jobs": {
		`{"title": "Programme Officer", "department": "Programmes", "location": "Lilongwe", "type": "full-time", "description": "<p>Coordinate field activities across our water and education programmes.</p>", "requirements": ["Degree in development studies", "Two years field experience"], "applyEmail": "careers@mthunzitrust.org", "deadline": "2030-12-31"}`,
	},
	"gallery": {
		`{"title": "Borehole handover", "image": "/files/samples/borehole.jpg", "caption": "Handover ceremony in Mtsiliza", "category": "water", "featured": true}`,
	},
	"partners": {
		`{"name": "Ministry of Education", "type": "government", "description": "Partner on the bursary programme.", "order": 1}`,
		`{"name": "Lilongwe Rotary Club", "type": "funding", "website": "https://example.org", "order": 2}`,
	},
	"team": {
		`{"name": "Thandiwe Mwale", "position": "Executive Director", "bio": "<p>Leads the Trust since 2015.</p>", "group": "staff", "order": 1}`,
		`{"name": "Joseph Kamanga", "position": "Board Chair", "group": "board", "order": 1}`,
	},
}
