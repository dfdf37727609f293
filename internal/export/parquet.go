package export

import (
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetRow struct {
	Week          int32   `parquet:"name=week, type=INT32"`
	PopulationPct float64 `parquet:"name=population_pct, type=DOUBLE"`
	UserPct       float64 `parquet:"name=user_pct, type=DOUBLE"`
	WeightKg      float64 `parquet:"name=weight_kg, type=DOUBLE"`
}

func MarshalParquet(rows []Row) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		row := parquetRow{
			Week:          int32(r.Week),
			PopulationPct: r.PopulationPct,
			UserPct:       r.UserPct,
			WeightKg:      r.WeightKg,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}
