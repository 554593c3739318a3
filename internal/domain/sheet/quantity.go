// Package sheet contiene los servicios de dominio de la hoja de despacho:
// el modelo de cantidades (funciones puras), la máquina de estados del ciclo
// de vida y la tabla de mutabilidad de campos. Sin dependencias de
// infraestructura; todo es invocable sobre un candidato de edición antes de
// confirmarlo.
package sheet

import "github.com/jhoicas/Despachos-api/internal/domain/entity"

// StagingTotal total planificado de cajas: casesPerPlt*fullPlt + loose.
// Las entradas negativas se rechazan en el borde de edición, no aquí.
func StagingTotal(casesPerPlt, fullPlt, loose int) int {
	return casesPerPlt*fullPlt + loose
}

// LoadingTotal suma de todas las celdas de la grilla más el loose input.
// looseInput ausente cuenta como cero.
func LoadingTotal(cells []entity.Cell, looseInput *int) int {
	total := 0
	for _, c := range cells {
		total += c.Value
	}
	if looseInput != nil {
		total += *looseInput
	}
	return total
}

// Balance plan menos cargado. Positivo = faltante (debe devolverse);
// negativo = sobrecarga (se explica vía AdditionalItem o se marca).
func Balance(stagingTotal, loadingTotal int) int {
	return stagingTotal - loadingTotal
}

// RequiredSlotCount número de posiciones de pallet que deben llenarse:
// cada pallet completo ocupa exactamente una de las 10 columnas por fila.
func RequiredSlotCount(fullPlt int) int {
	return fullPlt
}

// RequiredRows filas de la grilla necesarias: ceil(fullPlt/10).
func RequiredRows(fullPlt int) int {
	if fullPlt <= 0 {
		return 0
	}
	return (fullPlt + entity.SlotsPerRow - 1) / entity.SlotsPerRow
}

// IsRequiredSlot indica si el slot en (row, col) está dentro del plan:
// el índice absoluto row*10+col es requerido sii es menor que fullPlt.
// Valores fuera de los slots requeridos son anomalías de presentación,
// no errores de conciliación.
func IsRequiredSlot(row, col, fullPlt int) bool {
	return row*entity.SlotsPerRow+col < fullPlt
}

// AdditionalTotal suma de los 10 contadores de un ítem adicional.
func AdditionalTotal(counts [10]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// RecomputeStaging reemplaza el derivado TtlCases de la línea.
func RecomputeStaging(it *entity.StagingItem) {
	it.TtlCases = StagingTotal(it.CasesPerPlt, it.FullPlt, it.Loose)
}

// RecomputeLoading reemplaza Total y Balance de la línea de carga contra su
// línea de staging. Si no existe staging con ese SrNo, el balance queda en
// el negativo del total (todo lo cargado es exceso sin plan).
func RecomputeLoading(s *entity.Sheet, li *entity.LoadingItem) {
	li.Total = LoadingTotal(li.Cells, li.LooseInput)
	planned := 0
	if st := s.StagingItemBySrNo(li.SKUSrNo); st != nil {
		planned = st.TtlCases
	}
	li.Balance = Balance(planned, li.Total)
}

// Recalculate recorre el agregado completo y reemplaza todos los campos
// derivados. Idempotente: dos pasadas sobre el mismo input producen el mismo
// resultado (no hay acumulación oculta).
func Recalculate(s *entity.Sheet) {
	for i := range s.StagingItems {
		RecomputeStaging(&s.StagingItems[i])
	}
	for i := range s.LoadingItems {
		RecomputeLoading(s, &s.LoadingItems[i])
	}
	for i := range s.AdditionalItems {
		s.AdditionalItems[i].Total = AdditionalTotal(s.AdditionalItems[i].Counts)
	}
}
