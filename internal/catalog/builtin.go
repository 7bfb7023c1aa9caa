package catalog

// Namespace is the identifier prefix shared by every built-in template
const Namespace = "dbt_expectations"

const ns = Namespace + "."

// builtinTemplates is the static dbt-expectations table.
// Order is the selection-menu order.
func builtinTemplates() []*Template {
	return []*Template{
		{ID: ns + "expect_column_to_exist", Params: []string{"column"}},
		{ID: ns + "expect_column_values_to_be_unique", Params: []string{"column"}},
		{ID: ns + "expect_column_values_to_not_be_null", Params: []string{"column"}},
		{ID: ns + "expect_column_values_to_be_in_type_list", Params: []string{"column", "type_list"}},
		{ID: ns + "expect_column_values_to_match_regex", Params: []string{"column", "regex"}},
		{ID: ns + "expect_column_values_to_not_match_regex", Params: []string{"column", "regex"}},
		{ID: ns + "expect_column_values_to_be_in_set", Params: []string{"column", "value_set"}},
		{ID: ns + "expect_column_values_to_not_be_in_set", Params: []string{"column", "value_set"}},
		{ID: ns + "expect_column_values_to_be_between", Params: []string{"column", "min_value", "max_value", "strict_min", "strict_max"}},
		{ID: ns + "expect_column_value_lengths_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_value_lengths_to_equal", Params: []string{"column", "value"}},
		{ID: ns + "expect_column_median_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_mean_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_min_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_max_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_sum_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_pair_values_a_to_be_greater_than_b", Params: []string{"column_A", "column_B", "or_equal"}},
		{ID: ns + "expect_column_pair_values_to_be_in_set", Params: []string{"column_A", "column_B", "value_set"}},
		{ID: ns + "expect_compound_columns_to_be_unique", Params: []string{"column_list"}},
		{ID: ns + "expect_multicolumn_sum_to_be_between", Params: []string{"column_list", "min_value", "max_value"}},
		{ID: ns + "expect_row_values_to_have_data_for_every_n_datepart", Params: []string{"date_column", "n", "datepart", "interval", "test_start_date", "test_end_date", "row_condition", "exclusion_condition"}},
		{ID: ns + "expect_table_row_count_to_be_between", Params: []string{"min_value", "max_value"}},
		{ID: ns + "expect_table_column_count_to_be_between", Params: []string{"min_value", "max_value"}},
		{ID: ns + "expect_table_columns_to_match_ordered_list", Params: []string{"column_list"}},
		{ID: ns + "expect_table_row_count_to_equal_other_table", Params: []string{"other_table"}},
		{ID: ns + "expect_column_values_to_match_like_pattern", Params: []string{"column", "like_pattern"}},
		{ID: ns + "expect_column_values_to_not_match_like_pattern", Params: []string{"column", "unlike_pattern"}},
		{ID: ns + "expect_column_values_to_match_like_pattern_list", Params: []string{"column", "like_pattern_list"}},
		{ID: ns + "expect_column_values_to_not_match_like_pattern_list", Params: []string{"column", "unlike_pattern_list"}},
		{ID: ns + "expect_column_stdev_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_proportion_of_unique_values_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_most_common_value_to_be_in_set", Params: []string{"column", "value_set"}},
		{ID: ns + "expect_column_least_common_value_to_be_in_set", Params: []string{"column", "value_set"}},
		{ID: ns + "expect_column_most_common_value_to_match_regex", Params: []string{"column", "regex"}},
		{ID: ns + "expect_column_chisquare_test_p_value_to_be_greater_than", Params: []string{"column", "value_set", "p"}},
		{ID: ns + "expect_column_pair_cramers_phi_value_to_be_less_than", Params: []string{"column_A", "column_B", "threshold"}},
		{ID: ns + "expect_column_kl_divergence_to_be_less_than", Params: []string{"column", "partition_object", "threshold"}},
		{ID: ns + "expect_table_to_contain_column_list", Params: []string{"column_list"}},
		{ID: ns + "expect_table_row_count_to_be_greater_than", Params: []string{"min_value"}},
		{ID: ns + "expect_table_row_count_to_be_less_than", Params: []string{"max_value"}},
		{ID: ns + "expect_table_row_count_to_be_equal_to", Params: []string{"value"}},
		{ID: ns + "expect_table_row_count_to_be_nonzero", Params: []string{}},
		{ID: ns + "expect_table_to_have_no_duplicate_rows", Params: []string{"column_list"}},
		{ID: ns + "expect_table_columns_to_match_set", Params: []string{"column_set"}},
		{ID: ns + "expect_table_columns_to_be_subset_of", Params: []string{"column_set"}},
		{ID: ns + "expect_table_columns_to_contain_set", Params: []string{"column_list"}},
		{ID: ns + "expect_row_values_to_have_recent_data", Params: []string{"column", "interval", "date_format"}},
		{ID: ns + "expect_grouped_row_values_to_have_recent_data", Params: []string{"column", "interval", "date_format", "group_by_column"}},
		{ID: ns + "expect_table_aggregation_to_equal_other_table", Params: []string{"aggregation_column", "other_table", "other_column"}},
		{ID: ns + "expect_table_column_count_to_equal_other_table", Params: []string{"other_table"}},
		{ID: ns + "expect_table_columns_to_not_contain_set", Params: []string{"column_set"}},
		{ID: ns + "expect_table_column_count_to_equal", Params: []string{"value"}},
		{ID: ns + "expect_table_row_count_to_equal_other_table_times_factor", Params: []string{"other_table", "factor"}},
		{ID: ns + "expect_table_row_count_to_equal", Params: []string{"value"}},
		{ID: ns + "expect_column_values_to_be_null", Params: []string{"column"}},
		{ID: ns + "expect_column_values_to_be_of_type", Params: []string{"column", "type"}},
		{ID: ns + "expect_column_values_to_have_consistent_casing", Params: []string{"column"}},
		{ID: ns + "expect_column_values_to_be_increasing", Params: []string{"column"}},
		{ID: ns + "expect_column_values_to_be_decreasing", Params: []string{"column"}},
		{ID: ns + "expect_column_values_to_match_regex_list", Params: []string{"column", "regex_list"}},
		{ID: ns + "expect_column_values_to_not_match_regex_list", Params: []string{"column", "regex_list"}},
		{ID: ns + "expect_column_distinct_count_to_equal", Params: []string{"column", "value"}},
		{ID: ns + "expect_column_distinct_count_to_be_greater_than", Params: []string{"column", "value"}},
		{ID: ns + "expect_column_distinct_count_to_be_less_than", Params: []string{"column", "value"}},
		{ID: ns + "expect_column_distinct_values_to_be_in_set", Params: []string{"column", "value_set"}},
		{ID: ns + "expect_column_distinct_values_to_contain_set", Params: []string{"column", "value_set"}},
		{ID: ns + "expect_column_distinct_values_to_equal_set", Params: []string{"column", "value_set"}},
		{ID: ns + "expect_column_distinct_count_to_equal_other_table", Params: []string{"column", "other_table", "other_column"}},
		{ID: ns + "expect_column_quantile_values_to_be_between", Params: []string{"column", "quantile", "min_value", "max_value", "group_by"}},
		{ID: ns + "expect_column_unique_value_count_to_be_between", Params: []string{"column", "min_value", "max_value"}},
		{ID: ns + "expect_column_pair_values_A_to_be_greater_than_B", Params: []string{"column_A", "column_B", "or_equal"}},
		{ID: ns + "expect_column_pair_values_to_be_equal", Params: []string{"column_A", "column_B"}},
		{ID: ns + "expect_select_column_values_to_be_unique_within_record", Params: []string{"column_list"}},
		{ID: ns + "expect_multicolumn_sum_to_equal", Params: []string{"column_list", "value"}},
		{ID: ns + "expect_column_values_to_be_within_n_moving_stdevs", Params: []string{"column", "n", "date_column_name", "period", "lookback_periods", "trend_periods"}},
		{ID: ns + "expect_column_values_to_be_within_n_stdevs", Params: []string{"column", "n"}},
	}
}
