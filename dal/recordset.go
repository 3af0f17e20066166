package dal

type RecordSet struct {
	ResultCount int64     `json:"result_count"`
	Records     []*Record `json:"records"`
}

func NewRecordSet(records ...*Record) *RecordSet {
	if records == nil {
		records = make([]*Record, 0)
	}

	return &RecordSet{
		ResultCount: int64(len(records)),
		Records:     records,
	}
}

func (self *RecordSet) Push(record *Record) *RecordSet {
	self.Records = append(self.Records, record)
	self.ResultCount = int64(len(self.Records))
	return self
}

func (self *RecordSet) Len() int {
	if self == nil {
		return 0
	}

	return len(self.Records)
}

func (self *RecordSet) IsEmpty() bool {
	return (self.Len() == 0)
}

func (self *RecordSet) GetRecord(index int) (*Record, bool) {
	if index >= 0 && index < self.Len() {
		return self.Records[index], true
	}

	return nil, false
}

// Return every record in the set as a map, with each record's identity stored under the given field.
func (self *RecordSet) Maps(identityField ...string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, self.Len())

	if self != nil {
		for _, record := range self.Records {
			out = append(out, record.Map(identityField...))
		}
	}

	return out
}
