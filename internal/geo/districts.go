package geo

import "github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"

// Maharashtra district centroids, in the order the district master lists them.
var maharashtra = []model.DistrictLocation{
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH01", DistrictName: "Mumbai", Latitude: 19.0760, Longitude: 72.8777, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH02", DistrictName: "Mumbai Suburban", Latitude: 19.1136, Longitude: 72.9083, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH03", DistrictName: "Thane", Latitude: 19.2183, Longitude: 73.0978, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH04", DistrictName: "Raigad", Latitude: 18.5204, Longitude: 73.0167, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH05", DistrictName: "Pune", Latitude: 18.5204, Longitude: 73.8567, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH06", DistrictName: "Nashik", Latitude: 20.0110, Longitude: 73.7903, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH07", DistrictName: "Ahmednagar", Latitude: 19.0948, Longitude: 74.7480, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH08", DistrictName: "Solapur", Latitude: 17.6599, Longitude: 75.9064, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH09", DistrictName: "Satara", Latitude: 17.6805, Longitude: 74.0183, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH10", DistrictName: "Kolhapur", Latitude: 16.7050, Longitude: 74.2433, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH11", DistrictName: "Sangli", Latitude: 16.8524, Longitude: 74.5815, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH12", DistrictName: "Sindhudurg", Latitude: 16.0213, Longitude: 73.6784, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH13", DistrictName: "Ratnagiri", Latitude: 16.9944, Longitude: 73.3000, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH14", DistrictName: "Nagpur", Latitude: 21.1458, Longitude: 79.0882, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH15", DistrictName: "Wardha", Latitude: 20.7453, Longitude: 78.5977, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH16", DistrictName: "Chandrapur", Latitude: 19.9615, Longitude: 79.2961, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH17", DistrictName: "Gadchiroli", Latitude: 20.1809, Longitude: 80.0032, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH18", DistrictName: "Bhandara", Latitude: 21.1704, Longitude: 79.6522, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH19", DistrictName: "Gondia", Latitude: 21.4557, Longitude: 80.1943, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH20", DistrictName: "Amravati", Latitude: 20.9374, Longitude: 77.7796, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH21", DistrictName: "Akola", Latitude: 20.7002, Longitude: 77.0082, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH22", DistrictName: "Yavatmal", Latitude: 20.3897, Longitude: 78.1308, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH23", DistrictName: "Buldhana", Latitude: 20.5311, Longitude: 76.1873, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH24", DistrictName: "Washim", Latitude: 20.1097, Longitude: 77.1342, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH25", DistrictName: "Hingoli", Latitude: 19.7165, Longitude: 77.1481, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH26", DistrictName: "Parbhani", Latitude: 19.2704, Longitude: 76.7749, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH27", DistrictName: "Jalna", Latitude: 19.8347, Longitude: 75.8800, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH28", DistrictName: "Aurangabad", Latitude: 19.8762, Longitude: 75.3433, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH29", DistrictName: "Nanded", Latitude: 19.1383, Longitude: 77.3210, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH30", DistrictName: "Latur", Latitude: 18.3984, Longitude: 76.5604, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH31", DistrictName: "Osmanabad", Latitude: 18.1774, Longitude: 76.0372, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH32", DistrictName: "Beed", Latitude: 18.9892, Longitude: 75.7547, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH33", DistrictName: "Dhule", Latitude: 20.9042, Longitude: 74.7749, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH34", DistrictName: "Jalgaon", Latitude: 21.0077, Longitude: 75.5626, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH35", DistrictName: "Nandurbar", Latitude: 21.3667, Longitude: 74.2333, IsActive: true},
	{StateCode: "MH", StateName: "Maharashtra", DistrictCode: "MH36", DistrictName: "Palghar", Latitude: 19.6967, Longitude: 72.7649, IsActive: true},
}

// Districts returns a copy of the built-in district master.
func Districts() []model.DistrictLocation {
	out := make([]model.DistrictLocation, len(maharashtra))
	copy(out, maharashtra)
	return out
}
